package expenses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbook/landbook/internal/events"
	"github.com/landbook/landbook/internal/ledger"
	"github.com/landbook/landbook/internal/shared"
)

var (
	clerk   = shared.Principal{UserID: 1, Role: shared.RoleAdmin}
	manager = shared.Principal{UserID: 2, Role: shared.RoleAccountManager}
	hof     = shared.Principal{UserID: 3, Role: shared.RoleHOF}
)

func newTestService(t *testing.T) (*Service, *memoryExpenseRepo, *events.Recorder) {
	t.Helper()
	repo := newMemoryExpenseRepo()
	rec := &events.Recorder{}
	svc := NewService(repo, nil, rec, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC) })
	return svc, repo, rec
}

func validInput(method shared.PaymentMethod) Input {
	in := Input{
		CategoryID:    1,
		Amount:        decimal.NewFromInt(45000),
		Vendor:        "PSO",
		Description:   "Generator diesel",
		PaymentMethod: method,
	}
	if method == shared.PaymentCheque {
		in.Instrument = shared.InstrumentDetails{BankName: "MCB", ChequeNumber: "004512"}
	}
	return in
}

func submitted(t *testing.T, svc *Service) Expense {
	t.Helper()
	exp, err := svc.Create(context.Background(), clerk, validInput(shared.PaymentBank))
	require.NoError(t, err)
	exp, err = svc.Submit(context.Background(), clerk, exp.ID)
	require.NoError(t, err)
	require.Equal(t, shared.StatusPendingAccounts, exp.Status)
	return exp
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := validInput(shared.PaymentCash)
	in.Amount = decimal.NewFromInt(-5)
	_, err := svc.Create(ctx, clerk, in)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	in = validInput(shared.PaymentCheque)
	in.Instrument.ChequeNumber = ""
	_, err = svc.Create(ctx, clerk, in)
	require.ErrorIs(t, err, shared.ErrMissingField)

	in = validInput(shared.PaymentCash)
	in.CategoryID = 99
	_, err = svc.Create(ctx, clerk, in)
	require.ErrorIs(t, err, shared.ErrNotFound)

	exp, err := svc.Create(ctx, clerk, validInput(shared.PaymentCash))
	require.NoError(t, err)
	assert.Equal(t, shared.StatusDraft, exp.Status)
	assert.Equal(t, "Fuel", exp.CategoryName)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), exp.ExpenseDate)
	assert.Empty(t, exp.Instrument.BankName)
}

func TestExpenseApprovalFullPathPostsBalancedLedger(t *testing.T) {
	svc, repo, rec := newTestService(t)
	ctx := context.Background()
	exp := submitted(t, svc)

	exp, err := svc.Approve(ctx, manager, exp.ID, "checked receipts")
	require.NoError(t, err)
	require.Equal(t, shared.StatusPendingHOF, exp.Status)
	require.Empty(t, repo.ledger[exp.ID])

	exp, err = svc.Approve(ctx, hof, exp.ID, "")
	require.NoError(t, err)
	require.Equal(t, shared.StatusApproved, exp.Status)

	require.Len(t, exp.LedgerEntries, 2)
	debit, credit := decimal.Zero, decimal.Zero
	for _, e := range exp.LedgerEntries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	assert.True(t, debit.Equal(credit))
	assert.True(t, debit.Equal(exp.Amount))
	assert.Equal(t, ledger.AccountExpense, exp.LedgerEntries[0].AccountName)
	assert.Equal(t, ledger.AccountBank, exp.LedgerEntries[1].AccountName)

	require.Len(t, exp.ApprovalHistory, 3)
	assert.Equal(t, shared.ApprovalSubmit, exp.ApprovalHistory[0].Action)
	assert.Equal(t, shared.ApprovalApprove, exp.ApprovalHistory[1].Action)
	assert.Equal(t, "checked receipts", exp.ApprovalHistory[1].Remarks)
	assert.Equal(t, string(shared.StatusApproved), exp.ApprovalHistory[2].ToStatus)

	assert.Equal(t, []events.Type{events.ExpenseSubmitted, events.ExpenseApproved}, rec.Types())
}

func TestHOFCannotSkipAccountsStage(t *testing.T) {
	svc, repo, _ := newTestService(t)
	exp := submitted(t, svc)

	_, err := svc.Approve(context.Background(), hof, exp.ID, "")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.Equal(t, shared.StatusPendingAccounts, repo.expenses[exp.ID].Status)
	assert.Empty(t, repo.ledger[exp.ID])
}

func TestAccountManagerCannotGiveFinalApproval(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	exp := submitted(t, svc)
	_, err := svc.Approve(ctx, manager, exp.ID, "")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, manager, exp.ID, "")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestApproveTerminalIsInvalidState(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	exp := submitted(t, svc)
	_, err := svc.Approve(ctx, manager, exp.ID, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, hof, exp.ID, "")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, hof, exp.ID, "")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestLedgerFailureRollsBackApproval(t *testing.T) {
	svc, repo, rec := newTestService(t)
	ctx := context.Background()
	exp := submitted(t, svc)
	_, err := svc.Approve(ctx, manager, exp.ID, "")
	require.NoError(t, err)

	repo.failLedger = errors.New("disk full")
	_, err = svc.Approve(ctx, hof, exp.ID, "")
	require.Error(t, err)

	assert.Equal(t, shared.StatusPendingHOF, repo.expenses[exp.ID].Status)
	assert.Len(t, repo.history[exp.ID], 2)
	assert.Empty(t, repo.ledger[exp.ID])
	assert.NotContains(t, rec.Types(), events.ExpenseApproved)
}

func TestRejectRequiresRemarksAndAnyPendingStage(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()
	exp := submitted(t, svc)

	_, err := svc.Reject(ctx, hof, exp.ID, "")
	require.ErrorIs(t, err, shared.ErrMissingField)

	exp, err = svc.Reject(ctx, hof, exp.ID, "duplicate bill")
	require.NoError(t, err)
	assert.Equal(t, shared.StatusRejected, exp.Status)
	assert.Contains(t, rec.Types(), events.ExpenseRejected)
}

func TestRejectOnTerminalLeavesHistoryUnchanged(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	rejected := submitted(t, svc)
	_, err := svc.Reject(ctx, manager, rejected.ID, "no receipt")
	require.NoError(t, err)
	before := len(repo.history[rejected.ID])
	_, err = svc.Reject(ctx, manager, rejected.ID, "again")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Len(t, repo.history[rejected.ID], before)

	approved := submitted(t, svc)
	_, err = svc.Approve(ctx, manager, approved.ID, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, hof, approved.ID, "")
	require.NoError(t, err)
	before = len(repo.history[approved.ID])
	_, err = svc.Reject(ctx, hof, approved.ID, "too late")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Len(t, repo.history[approved.ID], before)
	assert.Len(t, repo.ledger[approved.ID], 2)
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	svc, _, _ := newTestService(t)
	exp := submitted(t, svc)
	_, err := svc.Submit(context.Background(), clerk, exp.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestUpdateAndDeleteGuards(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	draft, err := svc.Create(ctx, clerk, validInput(shared.PaymentCash))
	require.NoError(t, err)
	in := validInput(shared.PaymentCash)
	in.Amount = decimal.NewFromInt(100)
	updated, err := svc.Update(ctx, clerk, draft.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(100)))

	pending := submitted(t, svc)
	_, err = svc.Update(ctx, clerk, pending.ID, in)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.ErrorIs(t, svc.Delete(ctx, clerk, pending.ID), shared.ErrInvalidState)

	_, err = svc.Reject(ctx, hof, pending.ID, "wrong category")
	require.NoError(t, err)
	_, err = svc.Update(ctx, clerk, pending.ID, in)
	require.ErrorIs(t, err, shared.ErrFinalized)
	require.ErrorIs(t, svc.Delete(ctx, clerk, pending.ID), shared.ErrFinalized)

	require.NoError(t, svc.Delete(ctx, clerk, draft.ID))
	assert.False(t, repo.expenses[draft.ID].IsActive)
	_, err = svc.Get(ctx, draft.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestApprovalQueueByRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	first := submitted(t, svc)
	second := submitted(t, svc)
	_, err := svc.Approve(ctx, manager, second.ID, "")
	require.NoError(t, err)

	queue, err := svc.ApprovalQueue(ctx, manager)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, first.ID, queue[0].ID)

	queue, err = svc.ApprovalQueue(ctx, hof)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].ID)

	queue, err = svc.ApprovalQueue(ctx, clerk)
	require.NoError(t, err)
	assert.Len(t, queue, 2)
}

func TestStatsGroupsByStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, clerk, validInput(shared.PaymentCash))
	require.NoError(t, err)
	submitted(t, svc)

	sum, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.TotalCount)
	assert.True(t, sum.TotalAmount.Equal(decimal.NewFromInt(90000)))
	assert.Len(t, sum.ByStatus, 2)
}

func TestLosingConcurrentDecisionLeavesRecordUntouched(t *testing.T) {
	inner := newMemoryExpenseRepo()
	repo := &staleExpenseRepo{memoryExpenseRepo: inner, pinned: map[int64]Expense{}}
	rec := &events.Recorder{}
	svc := NewService(repo, nil, rec, nil)
	svc.WithNow(func() time.Time { return time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC) })
	ctx := context.Background()

	exp := submitted(t, svc)
	exp, err := svc.Approve(ctx, manager, exp.ID, "")
	require.NoError(t, err)
	require.Equal(t, shared.StatusPendingHOF, exp.Status)
	snapshot := inner.expenses[exp.ID]

	_, err = svc.Approve(ctx, hof, exp.ID, "first")
	require.NoError(t, err)

	repo.pinned[exp.ID] = snapshot
	_, err = svc.Approve(ctx, hof, exp.ID, "second")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, shared.ErrStaleState.Message, err.Error())

	_, err = svc.Reject(ctx, hof, exp.ID, "too late")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	assert.Equal(t, shared.StatusApproved, inner.expenses[exp.ID].Status)
	assert.Len(t, inner.history[exp.ID], 3)
	assert.Len(t, inner.ledger[exp.ID], 2)
	assert.Equal(t, []events.Type{events.ExpenseSubmitted, events.ExpenseApproved}, rec.Types())
}
