package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/landbook/landbook/internal/jobs"
)

// DefaultIdempotencyRetention keeps SMS dedupe keys for thirty days.
const DefaultIdempotencyRetention = 30 * 24 * time.Hour

// KeyPruner is implemented by *shared.IdempotencyStore.
type KeyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob deletes idempotency keys past their retention window.
type IdempotencyCleanupJob struct {
	Store     KeyPruner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob constructs the job handler. A non-positive
// retention falls back to DefaultIdempotencyRetention.
func NewIdempotencyCleanupJob(store KeyPruner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	return &IdempotencyCleanupJob{Store: store, Retention: retention, Logger: logger, Metrics: metrics}
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup job: dependencies not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	removed, err := j.Store.Cleanup(ctx, j.Retention)
	if err != nil {
		logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddProcessed(TaskIdempotencyCleanup, "deleted", removed)
	logger.Info("idempotency cleanup completed",
		slog.Duration("retention", j.Retention),
		slog.Int64("deleted", removed))
	return nil
}
