package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbook/landbook/internal/shared"
)

func TestBuildExpensePostingBalances(t *testing.T) {
	for _, tc := range []struct {
		method shared.PaymentMethod
		credit string
	}{
		{shared.PaymentCash, AccountCash},
		{shared.PaymentBank, AccountBank},
		{shared.PaymentCheque, AccountBank},
	} {
		t.Run(string(tc.method), func(t *testing.T) {
			amount := decimal.RequireFromString("12500.75")
			entries, err := BuildExpensePosting(ExpensePosting{
				ExpenseID:     7,
				Amount:        amount,
				Date:          time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
				PaymentMethod: tc.method,
				Description:   "Site fuel",
				ActorID:       3,
			})
			require.NoError(t, err)
			require.Len(t, entries, 2)

			assert.Equal(t, AccountExpense, entries[0].AccountName)
			assert.True(t, entries[0].Debit.Equal(amount))
			assert.True(t, entries[0].Credit.IsZero())
			assert.Equal(t, tc.credit, entries[1].AccountName)
			assert.True(t, entries[1].Credit.Equal(amount))
			assert.True(t, entries[1].Debit.IsZero())

			assert.Equal(t, entries[0].TransactionID, entries[1].TransactionID)
			assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), entries[0].TransactionDate)
			for _, e := range entries {
				assert.Equal(t, ReferenceExpense, e.ReferenceModel)
				assert.Equal(t, int64(7), e.ReferenceID)
			}
		})
	}
}

func TestBuildExpensePostingRejectsNonPositive(t *testing.T) {
	_, err := BuildExpensePosting(ExpensePosting{ExpenseID: 1, Amount: decimal.Zero, PaymentMethod: shared.PaymentCash})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestValidate(t *testing.T) {
	one := decimal.NewFromInt(1)
	two := decimal.NewFromInt(2)

	require.ErrorIs(t, Validate([]Entry{{AccountName: "Expense", Debit: one}}), ErrTooFewLines)
	require.ErrorIs(t, Validate([]Entry{
		{AccountName: "Expense", Debit: two},
		{AccountName: "Cash", Credit: one},
	}), ErrUnbalanced)
	require.Error(t, Validate([]Entry{
		{AccountName: "Expense", Debit: one, Credit: one},
		{AccountName: "Cash", Credit: decimal.Zero},
	}))
	require.Error(t, Validate([]Entry{
		{AccountName: "Expense", Debit: one.Neg()},
		{AccountName: "Cash", Credit: one.Neg()},
	}))
}

type stubRepo struct {
	lines []BalanceLine
}

func (s stubRepo) ListByReference(ctx context.Context, model string, id int64) ([]Entry, error) {
	return nil, nil
}

func (s stubRepo) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	return nil, 0, nil
}

func (s stubRepo) TrialBalance(ctx context.Context) ([]BalanceLine, error) {
	return s.lines, nil
}

func TestTrialBalanceTotals(t *testing.T) {
	svc := NewService(stubRepo{lines: []BalanceLine{
		{AccountName: "Bank", Credit: decimal.NewFromInt(300)},
		{AccountName: "Cash", Credit: decimal.NewFromInt(200)},
		{AccountName: "Expense", Debit: decimal.NewFromInt(500)},
	}})
	tb, err := svc.TrialBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, tb.Balanced)
	assert.True(t, tb.TotalDebit.Equal(decimal.NewFromInt(500)))
	assert.True(t, tb.Lines[0].Balance.Equal(decimal.NewFromInt(-300)))
}
