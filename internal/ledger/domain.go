// Package ledger records the double-entry rows produced by approved expenses.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account names used by expense postings.
const (
	AccountExpense = "Expense"
	AccountCash    = "Cash"
	AccountBank    = "Bank"
)

// TransactionExpense tags rows created by expense approval.
const TransactionExpense = "Expense"

// ReferenceExpense is the reference model for expense postings.
const ReferenceExpense = "Expense"

// Entry is a single ledger row.
type Entry struct {
	ID              int64           `json:"id"`
	TransactionID   uuid.UUID       `json:"transactionId"`
	AccountName     string          `json:"accountName"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	TransactionType string          `json:"transactionType"`
	ReferenceModel  string          `json:"referenceModel"`
	ReferenceID     int64           `json:"referenceId"`
	Description     string          `json:"description"`
	TransactionDate time.Time       `json:"transactionDate"`
	CreatedBy       int64           `json:"createdBy"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ListFilter narrows ledger listings.
type ListFilter struct {
	AccountName    string
	ReferenceModel string
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// BalanceLine is one account row of the trial balance.
type BalanceLine struct {
	AccountName string          `json:"accountName"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalance sums every account.
type TrialBalance struct {
	Lines       []BalanceLine   `json:"lines"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Balanced    bool            `json:"balanced"`
}
