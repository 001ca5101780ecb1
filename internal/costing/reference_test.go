package costing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReferenceDecodeRawString(t *testing.T) {
	var ref Reference
	require.NoError(t, json.Unmarshal([]byte(`"60f7a1b2c3d4e5f6a7b8c9d0"`), &ref))
	require.Equal(t, "60f7a1b2c3d4e5f6a7b8c9d0", ref.ID())
	require.False(t, ref.IsZero())
}

func TestReferenceDecodeEmbedded(t *testing.T) {
	var ref Reference
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"60f7a1b2c3d4e5f6a7b8c9d0","name":"Widget","cost":1.5}`), &ref))
	require.Equal(t, "60f7a1b2c3d4e5f6a7b8c9d0", ref.ID())
	require.Equal(t, "Widget", ref.Name)
	require.InDelta(t, 1.5, ref.Cost, 0.0001)
}

func TestReferenceEquivalence(t *testing.T) {
	var raw, embedded Reference
	require.NoError(t, json.Unmarshal([]byte(`"60fabc"`), &raw))
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"60fabc","name":"X"}`), &embedded))
	require.True(t, raw.Equal(embedded))
	require.Equal(t, NewLotKey(raw, "L1"), NewLotKey(embedded, "L1"))
}

func TestReferenceTrimsWhitespaceOnly(t *testing.T) {
	var ref Reference
	require.NoError(t, json.Unmarshal([]byte(`"  ABCdef  "`), &ref))
	require.Equal(t, "ABCdef", ref.ID())

	var upper Reference
	require.NoError(t, json.Unmarshal([]byte(`"abcDEF"`), &upper))
	require.False(t, ref.Equal(upper))
}

func TestReferenceMalformedDegradesToAbsent(t *testing.T) {
	cases := []string{`null`, `42`, `true`, `[1,2]`, `{"name":"no id"}`, `{"_id":"   "}`}
	for _, raw := range cases {
		var ref Reference
		require.NoError(t, json.Unmarshal([]byte(raw), &ref), raw)
		require.True(t, ref.IsZero(), raw)
	}
}

func TestReferenceMarshalRawForm(t *testing.T) {
	out, err := json.Marshal(EmbeddedReference("60fabc", "Widget", 2.5))
	require.NoError(t, err)
	require.JSONEq(t, `"60fabc"`, string(out))

	out, err = json.Marshal(Reference{})
	require.NoError(t, err)
	require.Equal(t, "null", string(out))
}
