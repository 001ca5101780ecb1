package costsync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const progressKey = "costsync:progress"

// Progress stores the latest sync-run checkpoint in Redis. It exists for
// status visibility, not coordination: the system assumes a single
// synchronizer driver at a time.
type Progress struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProgress builds the checkpoint store. A zero ttl keeps checkpoints
// forever.
func NewProgress(client *redis.Client, ttl time.Duration) *Progress {
	return &Progress{client: client, ttl: ttl}
}

// Record overwrites the checkpoint for the current run.
func (p *Progress) Record(ctx context.Context, progress RunProgress) error {
	if p == nil || p.client == nil {
		return nil
	}
	progress.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, progressKey, data, p.ttl).Err()
}

// Last returns the most recent checkpoint; the boolean reports presence.
func (p *Progress) Last(ctx context.Context) (RunProgress, bool, error) {
	if p == nil || p.client == nil {
		return RunProgress{}, false, nil
	}
	data, err := p.client.Get(ctx, progressKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return RunProgress{}, false, nil
	}
	if err != nil {
		return RunProgress{}, false, err
	}
	var progress RunProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return RunProgress{}, false, err
	}
	return progress, true, nil
}
