// Package cheques tracks post-dated and current cheques through clearing.
package cheques

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/shared"
)

// Entity is the name used for audit, events and stats.
const Entity = "cheque"

// Upcoming window bounds in days.
const (
	DefaultUpcomingDays = 7
	MaxUpcomingDays     = 365
)

// Type distinguishes post-dated from current cheques.
type Type string

const (
	TypePDC     Type = "PDC"
	TypeCurrent Type = "Current"
)

// Valid reports whether t is known.
func (t Type) Valid() bool {
	return t == TypePDC || t == TypeCurrent
}

// Status of a cheque.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusDueToday  Status = "DueToday"
	StatusOverdue   Status = "Overdue"
	StatusCleared   Status = "Cleared"
	StatusBounced   Status = "Bounced"
	StatusCancelled Status = "Cancelled"
)

// Valid reports whether s is known.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDueToday, StatusOverdue, StatusCleared, StatusBounced, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s is Cleared, Bounced or Cancelled.
func (s Status) IsTerminal() bool {
	return s == StatusCleared || s == StatusBounced || s == StatusCancelled
}

// OpenStatuses are the statuses a cheque holds before it is settled.
var OpenStatuses = []Status{StatusPending, StatusDueToday, StatusOverdue}

// DeriveStatus returns the open status a cheque due on due has on today.
func DeriveStatus(due, today time.Time) Status {
	switch d := dateOnly(due); {
	case d.Equal(dateOnly(today)):
		return StatusDueToday
	case d.Before(dateOnly(today)):
		return StatusOverdue
	default:
		return StatusPending
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Cheque is a single instrument received or issued.
type Cheque struct {
	ID            int64           `json:"id"`
	ChequeNumber  string          `json:"chequeNumber"`
	BankName      string          `json:"bankName"`
	Branch        string          `json:"branch,omitempty"`
	Type          Type            `json:"chequeType"`
	IssueDate     time.Time       `json:"issueDate"`
	DueDate       time.Time       `json:"dueDate"`
	Amount        decimal.Decimal `json:"amount"`
	ClientID      *int64          `json:"clientId,omitempty"`
	SaleID        *int64          `json:"saleId,omitempty"`
	ReceiptID     *int64          `json:"receiptId,omitempty"`
	RefundID      *int64          `json:"refundId,omitempty"`
	Status        Status          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	ClearedBy     *int64          `json:"clearedBy,omitempty"`
	ClearedDate   *time.Time      `json:"clearedDate,omitempty"`
	BouncedBy     *int64          `json:"bouncedBy,omitempty"`
	BouncedDate   *time.Time      `json:"bouncedDate,omitempty"`
	BounceReason  string          `json:"bounceReason,omitempty"`
	CancelledBy   *int64          `json:"cancelledBy,omitempty"`
	CancelledDate *time.Time      `json:"cancelledDate,omitempty"`
	CancelReason  string          `json:"cancelReason,omitempty"`
	CreatedBy     int64           `json:"createdBy"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Input carries the editable fields of a cheque.
type Input struct {
	ChequeNumber string
	BankName     string
	Branch       string
	Type         Type
	IssueDate    *time.Time
	DueDate      *time.Time
	Amount       decimal.Decimal
	ClientID     *int64
	SaleID       *int64
	ReceiptID    *int64
	RefundID     *int64
	Notes        string
}

// Settlement moves an open cheque into a terminal status.
type Settlement struct {
	ID      int64
	From    Status
	To      Status
	ActorID int64
	Date    time.Time
	Reason  string
}

// SweepResult counts cheques moved by a due-status sweep.
type SweepResult struct {
	DueToday int64 `json:"dueToday"`
	Overdue  int64 `json:"overdue"`
}

// ListFilter narrows cheque listings.
type ListFilter struct {
	Status   Status
	Type     Type
	BankName string
	DueFrom  *time.Time
	DueTo    *time.Time
	SaleID   int64
	Page     shared.PageRequest
}
