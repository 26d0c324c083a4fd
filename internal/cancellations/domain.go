// Package cancellations records sale cancellations and their approval.
package cancellations

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/shared"
)

// Entity is the name used for audit, events and stats.
const Entity = "cancellation"

// Status of a cancellation.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Valid reports whether s is known.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// DeciderRoles may approve or reject a cancellation.
var DeciderRoles = []shared.Role{shared.RoleHOF, shared.RoleAdmin}

// Cancellation is a request to unwind a sale and refund the client.
type Cancellation struct {
	ID               int64                `json:"id"`
	SaleID           int64                `json:"saleId"`
	Reason           string               `json:"reason"`
	RefundableAmount decimal.Decimal      `json:"refundableAmount"`
	Status           Status               `json:"status"`
	DecidedBy        *int64               `json:"decidedBy,omitempty"`
	DecidedAt        *time.Time           `json:"decidedAt,omitempty"`
	DecisionRemarks  string               `json:"decisionRemarks,omitempty"`
	ApprovalHistory  []shared.ApprovalLog `json:"approvalHistory"`
	CreatedBy        int64                `json:"createdBy"`
	IsActive         bool                 `json:"isActive"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

// CreateInput carries a new cancellation.
type CreateInput struct {
	SaleID           int64
	Reason           string
	RefundableAmount decimal.Decimal
}

// ListFilter narrows listings.
type ListFilter struct {
	Status Status
	SaleID int64
	Page   shared.PageRequest
}

// Decision is a status change written by the transaction repository.
type Decision struct {
	ID      int64
	From    Status
	To      Status
	ActorID int64
	At      time.Time
	Remarks string
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
