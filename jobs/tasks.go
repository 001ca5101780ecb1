package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCostSync triggers a full sale-order cost reconciliation run.
	TaskCostSync = "costs:sync"
)

// CostSyncPayload carries the parameters of one reconciliation run.
type CostSyncPayload struct {
	RunID     string `json:"run_id"`
	BatchSize int    `json:"batch_size"`
}

// NewCostSyncTask constructs an Asynq task for a full cost sync.
func NewCostSyncTask(payload CostSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCostSync, data, asynq.Queue(QueueDefault)), nil
}
