package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbook/landbook/internal/cheques"
	jobmetrics "github.com/landbook/landbook/internal/jobs"
	"github.com/landbook/landbook/internal/ledger"
)

type fakeSweeper struct {
	days []time.Time
	res  cheques.SweepResult
	err  error
}

func (f *fakeSweeper) SweepDueStatuses(_ context.Context, today time.Time) (cheques.SweepResult, error) {
	f.days = append(f.days, today)
	return f.res, f.err
}

func TestChequeSweepUsesBusinessDate(t *testing.T) {
	karachi := time.FixedZone("PKT", 5*3600)
	sweeper := &fakeSweeper{res: cheques.SweepResult{DueToday: 2, Overdue: 1}}
	job := NewChequeSweepJob(sweeper, karachi, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	// 20:30 UTC on 31 Jan is already 1 Feb in Karachi.
	job.clock = func() time.Time { return time.Date(2024, 1, 31, 20, 30, 0, 0, time.UTC) }

	task, err := NewChequeSweepTask(nil)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, sweeper.days, 1)
	assert.Equal(t, "2024-02-01", sweeper.days[0].Format("2006-01-02"))
}

func TestChequeSweepHonoursPinnedDate(t *testing.T) {
	sweeper := &fakeSweeper{}
	job := NewChequeSweepJob(sweeper, nil, nil, nil)

	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	task, err := NewChequeSweepTask(&day)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.True(t, sweeper.days[0].Equal(day))
}

func TestChequeSweepRejectsBadPayload(t *testing.T) {
	job := NewChequeSweepJob(&fakeSweeper{}, nil, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskChequeSweep, []byte(`{"date":"15/03/2024"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestChequeSweepPropagatesFailure(t *testing.T) {
	job := NewChequeSweepJob(&fakeSweeper{err: errors.New("db down")}, nil, nil, nil)
	task, err := NewChequeSweepTask(nil)
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

type fakeBalancer struct {
	tb ledger.TrialBalance
}

func (f fakeBalancer) TrialBalance(context.Context) (ledger.TrialBalance, error) {
	return f.tb, nil
}

func TestLedgerIntegrity(t *testing.T) {
	ok := NewLedgerIntegrityJob(fakeBalancer{tb: ledger.TrialBalance{Balanced: true}}, nil, nil)
	require.NoError(t, ok.Handle(context.Background(), NewLedgerIntegrityTask()))

	broken := NewLedgerIntegrityJob(fakeBalancer{tb: ledger.TrialBalance{
		TotalDebit:  decimal.NewFromInt(100),
		TotalCredit: decimal.NewFromInt(90),
	}}, nil, nil)
	err := broken.Handle(context.Background(), NewLedgerIntegrityTask())
	assert.ErrorIs(t, err, ErrLedgerImbalanced)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type fakePruner struct {
	retention []time.Duration
	removed   int64
	err       error
}

func (f *fakePruner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.retention = append(f.retention, olderThan)
	return f.removed, f.err
}

func TestIdempotencyCleanup(t *testing.T) {
	reg := prometheus.NewRegistry()
	pruner := &fakePruner{removed: 7}
	job := NewIdempotencyCleanupJob(pruner, 48*time.Hour, nil, jobmetrics.NewMetrics(reg))
	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	assert.Equal(t, []time.Duration{48 * time.Hour}, pruner.retention)

	families, err := reg.Gather()
	require.NoError(t, err)
	var deleted float64
	for _, mf := range families {
		if mf.GetName() != "landbook_job_records_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["job"] == TaskIdempotencyCleanup && labels["outcome"] == "deleted" {
				deleted = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(7), deleted)
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	pruner := &fakePruner{}
	job := NewIdempotencyCleanupJob(pruner, 0, nil, nil)
	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	assert.Equal(t, []time.Duration{DefaultIdempotencyRetention}, pruner.retention)

	failing := NewIdempotencyCleanupJob(&fakePruner{err: errors.New("db down")}, time.Hour, nil, nil)
	assert.Error(t, failing.Handle(context.Background(), NewIdempotencyCleanupTask()))
}

type fakeInspector map[string]*asynq.QueueInfo

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	info, ok := f[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestHealthReportsQueues(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(fakeInspector{QueueNotify: {Queue: QueueNotify, Pending: 4, Retry: 1}}, nil).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool          `json:"success"`
		Data    []QueueStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, []QueueStatus{
		{Queue: QueueDefault},
		{Queue: QueueNotify, Pending: 4, Retry: 1},
	}, body.Data)
}
