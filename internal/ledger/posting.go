package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/shared"
)

var (
	// ErrTooFewLines indicates a posting with fewer than two rows.
	ErrTooFewLines = errors.New("ledger: posting requires at least two lines")
	// ErrUnbalanced indicates debit and credit totals differ.
	ErrUnbalanced = errors.New("ledger: debit and credit totals differ")
)

// ExpensePosting carries the approved expense fields needed for posting.
type ExpensePosting struct {
	ExpenseID     int64
	Amount        decimal.Decimal
	Date          time.Time
	PaymentMethod shared.PaymentMethod
	Vendor        string
	Description   string
	ActorID       int64
}

// CreditAccount returns the account credited for a payment method.
func CreditAccount(method shared.PaymentMethod) string {
	if method == shared.PaymentCash {
		return AccountCash
	}
	return AccountBank
}

// BuildExpensePosting returns the debit Expense / credit Cash-or-Bank pair.
func BuildExpensePosting(p ExpensePosting) ([]Entry, error) {
	if p.ExpenseID == 0 {
		return nil, errors.New("ledger: expense id required")
	}
	if !p.Amount.IsPositive() {
		return nil, shared.ErrInvalidAmount
	}
	txnID := uuid.New()
	desc := p.Description
	if p.Vendor != "" {
		desc = fmt.Sprintf("%s (%s)", p.Description, p.Vendor)
	}
	base := Entry{
		TransactionID:   txnID,
		TransactionType: TransactionExpense,
		ReferenceModel:  ReferenceExpense,
		ReferenceID:     p.ExpenseID,
		Description:     desc,
		TransactionDate: shared.DateOf(p.Date),
		CreatedBy:       p.ActorID,
	}
	debit := base
	debit.AccountName = AccountExpense
	debit.Debit = p.Amount
	debit.Credit = decimal.Zero

	credit := base
	credit.AccountName = CreditAccount(p.PaymentMethod)
	credit.Debit = decimal.Zero
	credit.Credit = p.Amount

	entries := []Entry{debit, credit}
	if err := Validate(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Validate checks that entries form a balanced posting.
func Validate(entries []Entry) error {
	if len(entries) < 2 {
		return ErrTooFewLines
	}
	debit, credit := decimal.Zero, decimal.Zero
	for idx, e := range entries {
		if e.AccountName == "" {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if e.Debit.IsPositive() && e.Credit.IsPositive() {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	if !debit.Equal(credit) {
		return ErrUnbalanced
	}
	return nil
}
