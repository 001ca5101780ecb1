package costing

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Reference identifies another document. Source collections are not uniform:
// older records store a bare identifier string while newer ones embed a small
// denormalised document carrying the identifier plus display fields. The
// zero value means "absent".
type Reference struct {
	id   string
	Name string
	Cost float64
}

// NewReference builds a Reference from a raw identifier string.
func NewReference(id string) Reference {
	return Reference{id: strings.TrimSpace(id)}
}

// EmbeddedReference builds a Reference carrying denormalised display fields.
func EmbeddedReference(id, name string, cost float64) Reference {
	return Reference{id: strings.TrimSpace(id), Name: name, Cost: cost}
}

// ID returns the trimmed identifier, or the empty string when the reference
// is absent or malformed. Identifiers are opaque case-sensitive tokens; only
// surrounding whitespace is stripped.
func (r Reference) ID() string {
	return r.id
}

// IsZero reports whether the reference carries no identifier.
func (r Reference) IsZero() bool {
	return r.id == ""
}

// Equal reports whether two references point at the same document.
func (r Reference) Equal(other Reference) bool {
	return r.id != "" && r.id == other.id
}

// UnmarshalJSON accepts either a bare identifier string or an embedded
// document with an "_id" (or "id") field. Anything else degrades to the
// absent reference rather than an error; callers skip absent identifiers
// instead of indexing them under a sentinel.
func (r *Reference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Reference{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			*r = Reference{}
			return nil
		}
		*r = NewReference(raw)
		return nil
	}
	if data[0] == '{' {
		var embedded struct {
			ID    string  `json:"_id"`
			AltID string  `json:"id"`
			Name  string  `json:"name"`
			Cost  float64 `json:"cost"`
		}
		if err := json.Unmarshal(data, &embedded); err != nil {
			*r = Reference{}
			return nil
		}
		id := embedded.ID
		if id == "" {
			id = embedded.AltID
		}
		*r = EmbeddedReference(id, embedded.Name, embedded.Cost)
		return nil
	}
	*r = Reference{}
	return nil
}

// MarshalJSON writes the raw identifier form. Display fields are
// denormalised copies and are never written back by this module.
func (r Reference) MarshalJSON() ([]byte, error) {
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}
