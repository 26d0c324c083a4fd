package refunds

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbook/landbook/internal/shared"
)

func amounts(items []Installment) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Amount.String()
	}
	return out
}

func TestGenerateScheduleEvenSplit(t *testing.T) {
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	items, err := GenerateSchedule(decimal.NewFromInt(500000), 5, start)
	require.NoError(t, err)
	require.Len(t, items, 5)

	want := []string{"2024-02-01", "2024-03-01", "2024-04-01", "2024-05-01", "2024-06-01"}
	for i, it := range items {
		assert.Equal(t, i+1, it.Number)
		assert.Equal(t, want[i], it.DueDate.Format(shared.DateLayout))
		assert.True(t, decimal.NewFromInt(100000).Equal(it.Amount))
	}
}

func TestGenerateScheduleLastAbsorbsRemainder(t *testing.T) {
	items, err := GenerateSchedule(decimal.NewFromInt(1000000), 3, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"333333", "333333", "333334"}, amounts(items))
}

func TestGenerateScheduleRoundsBaseUp(t *testing.T) {
	items, err := GenerateSchedule(decimal.NewFromInt(200), 3, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"67", "67", "66"}, amounts(items))
}

func TestGenerateScheduleSumsToAmount(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		amount string
		n      int
	}{
		{"1000000", 3},
		{"999999", 7},
		{"100", 1},
		{"1234567.89", 12},
		{"500000", 5},
		{"10", 10},
		{"250000.50", 4},
	}
	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.amount)
		items, err := GenerateSchedule(amount, tc.n, start)
		require.NoError(t, err, tc.amount)
		require.Len(t, items, tc.n)

		base := amount.DivRound(decimal.NewFromInt(int64(tc.n)), 0)
		total := decimal.Zero
		for i, it := range items {
			total = total.Add(it.Amount)
			if i < tc.n-1 {
				assert.True(t, base.Equal(it.Amount), "%s/%d installment %d", tc.amount, tc.n, i+1)
			}
		}
		assert.True(t, amount.Equal(total), "%s/%d sums to %s", tc.amount, tc.n, total)
	}
}

func TestGenerateScheduleClampsMonthEnd(t *testing.T) {
	items, err := GenerateSchedule(decimal.NewFromInt(400), 4, time.Date(2024, 1, 31, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.DueDate.Format(shared.DateLayout)
	}
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}, got)
}

func TestGenerateScheduleRejectsBadInput(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := GenerateSchedule(decimal.NewFromInt(100), 0, start)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = GenerateSchedule(decimal.NewFromInt(100), MaxInstallments+1, start)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = GenerateSchedule(decimal.Zero, 2, start)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	// 3 / 7 rounds to a zero base installment.
	_, err = GenerateSchedule(decimal.NewFromInt(3), 7, start)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestGenerateScheduleRejectsNonPositiveInstallments(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// 2 / 3 rounds the base to 1, leaving 0 for the last installment.
	_, err := GenerateSchedule(decimal.NewFromInt(2), 3, start)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
	assert.Contains(t, err.Error(), "cannot be split into 3 installments")

	_, err = GenerateSchedule(decimal.NewFromInt(1), 3, start)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	// A base rounded up leaves a smaller, still positive, last installment.
	items, err := GenerateSchedule(decimal.NewFromInt(5), 3, start)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "2", "1"}, amounts(items))
}
