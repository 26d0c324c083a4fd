package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/landbook/landbook/internal/notify"
	"github.com/landbook/landbook/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotify carries outbound SMS alerts.
	QueueNotify = notify.QueueNotify

	// TaskChequeSweep promotes open cheques to DueToday or Overdue.
	TaskChequeSweep = "cheque:sweep"
	// TaskLedgerIntegrity verifies the ledger trial balance.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ChequeSweepPayload optionally pins the business date the sweep evaluates.
type ChequeSweepPayload struct {
	Date string `json:"date,omitempty"`
}

// NewChequeSweepTask builds a sweep task. A nil date sweeps for the current
// business day at execution time.
func NewChequeSweepTask(date *time.Time) (*asynq.Task, error) {
	var payload ChequeSweepPayload
	if date != nil {
		payload.Date = date.Format(shared.DateLayout)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskChequeSweep, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

func (p ChequeSweepPayload) day(loc *time.Location) (*time.Time, error) {
	if p.Date == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(shared.DateLayout, p.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep date %q: %w", p.Date, err)
	}
	return &day, nil
}

// NewLedgerIntegrityTask builds a ledger integrity task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

// NewIdempotencyCleanupTask builds a key pruning task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(2))
}
