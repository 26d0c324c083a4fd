package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/landbook/landbook/internal/cheques"
	jobmetrics "github.com/landbook/landbook/internal/jobs"
	"github.com/landbook/landbook/internal/shared"
)

// ChequeSweeper is implemented by *cheques.Service.
type ChequeSweeper interface {
	SweepDueStatuses(ctx context.Context, today time.Time) (cheques.SweepResult, error)
}

// ChequeSweepJob runs the periodic due-status sweep.
type ChequeSweepJob struct {
	Sweeper  ChequeSweeper
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
	clock    func() time.Time
}

// NewChequeSweepJob constructs the job handler. loc is the business timezone
// used to decide what "today" is; nil means UTC.
func NewChequeSweepJob(sweeper ChequeSweeper, loc *time.Location, logger *slog.Logger, metrics *jobmetrics.Metrics) *ChequeSweepJob {
	if loc == nil {
		loc = time.UTC
	}
	return &ChequeSweepJob{
		Sweeper:  sweeper,
		Logger:   logger,
		Metrics:  metrics,
		Location: loc,
		clock:    time.Now,
	}
}

// Handle executes the sweep.
func (j *ChequeSweepJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Sweeper == nil {
		return errors.New("cheque sweep job: dependencies not configured")
	}
	var payload ChequeSweepPayload
	if body := task.Payload(); len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	pinned, err := payload.day(j.location())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	today := shared.DateOf(j.now().In(j.location()))
	if pinned != nil {
		today = *pinned
	}

	tracker := j.metrics().Track(TaskChequeSweep)
	defer func() {
		err = tracker.End(err)
	}()

	res, err := j.Sweeper.SweepDueStatuses(ctx, today)
	if err != nil {
		j.log().Error("cheque sweep failed", slog.String("date", today.Format(shared.DateLayout)), slog.Any("error", err))
		return err
	}
	j.metrics().AddProcessed(TaskChequeSweep, string(cheques.StatusDueToday), res.DueToday)
	j.metrics().AddProcessed(TaskChequeSweep, string(cheques.StatusOverdue), res.Overdue)
	j.log().Info("cheque sweep completed",
		slog.String("date", today.Format(shared.DateLayout)),
		slog.Int64("due_today", res.DueToday),
		slog.Int64("overdue", res.Overdue))
	return nil
}

func (j *ChequeSweepJob) location() *time.Location {
	if j.Location != nil {
		return j.Location
	}
	return time.UTC
}

func (j *ChequeSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

func (j *ChequeSweepJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ChequeSweepJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
