// Package expenses implements expense capture and the two-stage approval
// workflow that ends in ledger posting.
package expenses

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/ledger"
	"github.com/landbook/landbook/internal/shared"
)

// Entity is the name used for audit, events and stats.
const Entity = "expense"

// Expense is a single business expense.
type Expense struct {
	ID              int64                    `json:"id"`
	CategoryID      int64                    `json:"categoryId"`
	CategoryName    string                   `json:"categoryName"`
	Amount          decimal.Decimal          `json:"amount"`
	ExpenseDate     time.Time                `json:"expenseDate"`
	Vendor          string                   `json:"vendor"`
	Description     string                   `json:"description"`
	PaymentMethod   shared.PaymentMethod     `json:"paymentMethod"`
	Instrument      shared.InstrumentDetails `json:"instrumentDetails"`
	Status          shared.ApprovalStatus    `json:"status"`
	ApprovalHistory []shared.ApprovalLog     `json:"approvalHistory"`
	LedgerEntries   []ledger.Entry           `json:"ledgerEntries,omitempty"`
	CreatedBy       int64                    `json:"createdBy"`
	IsActive        bool                     `json:"isActive"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`
}

// Category groups expenses for reporting.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input carries the editable fields of an expense.
type Input struct {
	CategoryID    int64
	Amount        decimal.Decimal
	ExpenseDate   *time.Time
	Vendor        string
	Description   string
	PaymentMethod shared.PaymentMethod
	Instrument    shared.InstrumentDetails
}

// ListFilter narrows expense listings.
type ListFilter struct {
	Status     shared.ApprovalStatus
	CategoryID int64
	From       *time.Time
	To         *time.Time
	Search     string
	Page       shared.PageRequest
}

// Policy is the expense approval matrix: AccountManager clears the first
// stage, HOF the second, and any approver role may reject while pending.
var Policy = shared.TwoStagePolicy{
	AccountsRoles: []shared.Role{shared.RoleAccountManager},
	HOFRoles:      []shared.Role{shared.RoleHOF},
	RejectRoles:   shared.ApproverRoles(),
	Denied:        shared.ErrUnauthorized,
}

// editable reports whether an expense in status may be changed or deleted.
func editable(status shared.ApprovalStatus) error {
	switch {
	case status == shared.StatusDraft:
		return nil
	case status.IsPending():
		return shared.Wrapf(shared.ErrInvalidState, "expense is %s and can no longer be edited", status)
	default:
		return shared.Wrapf(shared.ErrFinalized, "expense is %s", status)
	}
}
