package refunds

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/shared"
)

// GenerateSchedule splits amount into n monthly installments starting at
// start. Every installment gets round(amount/n) except the last, which also
// absorbs the remainder so the installments always sum to amount.
func GenerateSchedule(amount decimal.Decimal, n int, start time.Time) ([]Installment, error) {
	if n <= 0 {
		return nil, shared.Wrap(shared.ErrValidation, "number of installments must be a positive integer")
	}
	if n > MaxInstallments {
		return nil, shared.Wrapf(shared.ErrValidation, "number of installments must not exceed %d", MaxInstallments)
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	count := decimal.NewFromInt(int64(n))
	base := amount.DivRound(count, 0)
	last := base.Add(amount.Sub(base.Mul(count)))
	if !base.IsPositive() || !last.IsPositive() {
		return nil, shared.Wrapf(shared.ErrInvalidAmount, "amount %s cannot be split into %d installments", amount, n)
	}

	start = shared.DateOf(start)
	out := make([]Installment, n)
	for i := range out {
		out[i] = Installment{
			Number:  i + 1,
			DueDate: shared.AddMonths(start, i),
			Amount:  base,
		}
	}
	out[n-1].Amount = last
	return out, nil
}
