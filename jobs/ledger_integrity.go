package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/landbook/landbook/internal/jobs"
	"github.com/landbook/landbook/internal/ledger"
)

// ErrLedgerImbalanced is returned when total debits differ from credits.
var ErrLedgerImbalanced = errors.New("ledger trial balance does not balance")

// TrialBalancer is implemented by *ledger.Service.
type TrialBalancer interface {
	TrialBalance(ctx context.Context) (ledger.TrialBalance, error)
}

// LedgerIntegrityJob checks that the double-entry ledger still balances.
type LedgerIntegrityJob struct {
	Ledger  TrialBalancer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob constructs the job handler.
func NewLedgerIntegrityJob(l TrialBalancer, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Ledger: l, Logger: logger, Metrics: metrics}
}

// Handle runs the check. An imbalance is reported once and not retried.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("ledger integrity job: dependencies not configured")
	}
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() {
		err = tracker.End(err)
	}()

	tb, err := j.Ledger.TrialBalance(ctx)
	if err != nil {
		return err
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !tb.Balanced {
		j.Metrics.AddProcessed(TaskLedgerIntegrity, "imbalanced", 1)
		logger.Error("ledger imbalance detected",
			slog.String("debit", tb.TotalDebit.StringFixed(2)),
			slog.String("credit", tb.TotalCredit.StringFixed(2)))
		return fmt.Errorf("%w: debit %s credit %s: %w", ErrLedgerImbalanced,
			tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2), asynq.SkipRetry)
	}
	logger.Info("ledger integrity ok", slog.Int("accounts", len(tb.Lines)))
	return nil
}
