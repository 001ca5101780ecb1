package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/costsync"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// CostSyncJob drives the batch cost synchronizer across all sale orders.
type CostSyncJob struct {
	Service *costsync.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCostSyncJob initialises the cost sync handler.
func NewCostSyncJob(service *costsync.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *CostSyncJob {
	return &CostSyncJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle executes one full reconciliation run. A failed batch halts the run;
// previously completed batches stay committed and a retry starts clean
// because batches are idempotent.
func (j *CostSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("cost sync: handler not configured")
	}
	var payload CostSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RunID == "" {
		payload.RunID = uuid.NewString()
	}
	if payload.BatchSize <= 0 {
		payload.BatchSize = costsync.DefaultBatchLimit
	}

	tracker := j.metrics().Track(TaskCostSync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("run_id", payload.RunID),
		slog.Int("batch_size", payload.BatchSize),
	)
	logger.Info("starting cost sync")
	start := time.Now()

	total, err := j.Service.RunFull(ctx, payload.RunID, payload.BatchSize)
	j.metrics().AddSyncOps(total.Ops, total.Updated)
	if err != nil {
		resultErr = err
		logger.Error("cost sync failed",
			slog.Int("processed", total.Processed),
			slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed cost sync",
		slog.Int("processed", total.Processed),
		slog.Int("ops", total.Ops),
		slog.Int("updated", total.Updated),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *CostSyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *CostSyncJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
