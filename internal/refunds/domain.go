// Package refunds schedules and approves refund installments for approved
// cancellations.
package refunds

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/shared"
)

// Entity is the name used for audit, events and stats.
const Entity = "refund"

// MaxInstallments bounds a single schedule.
const MaxInstallments = 360

// PaymentStatus tracks whether an installment has been paid out.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

// Refund is one installment of a cancellation's refund schedule.
type Refund struct {
	ID                int64                    `json:"id"`
	CancellationID    int64                    `json:"cancellationId"`
	InstallmentNumber int                      `json:"installmentNumber"`
	DueDate           time.Time                `json:"dueDate"`
	Amount            decimal.Decimal          `json:"amount"`
	PaymentStatus     PaymentStatus            `json:"paymentStatus"`
	ApprovalStatus    shared.ApprovalStatus    `json:"approvalStatus"`
	ApprovalHistory   []shared.ApprovalLog     `json:"approvalHistory"`
	PaidDate          *time.Time               `json:"paidDate,omitempty"`
	PaymentMethod     shared.PaymentMethod     `json:"paymentMethod,omitempty"`
	Instrument        shared.InstrumentDetails `json:"instrumentDetails"`
	RejectionReason   string                   `json:"rejectionReason,omitempty"`
	Notes             string                   `json:"notes,omitempty"`
	CreatedBy         int64                    `json:"createdBy"`
	IsActive          bool                     `json:"isActive"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// Installment is a generated slot of a schedule before persistence.
type Installment struct {
	Number  int
	DueDate time.Time
	Amount  decimal.Decimal
}

// ScheduleInput requests a new refund schedule.
type ScheduleInput struct {
	CancellationID       int64
	NumberOfInstallments int
	StartDate            *time.Time
	Notes                string
}

// PaymentInput records an installment payout.
type PaymentInput struct {
	PaymentMethod shared.PaymentMethod
	PaidDate      *time.Time
	Instrument    shared.InstrumentDetails
	Notes         string
}

// Payment is the normalized write for a payout.
type Payment struct {
	ID         int64
	Method     shared.PaymentMethod
	PaidDate   time.Time
	Instrument shared.InstrumentDetails
	Notes      string
}

// ListFilter narrows refund listings.
type ListFilter struct {
	CancellationID int64
	ApprovalStatus shared.ApprovalStatus
	PaymentStatus  PaymentStatus
	DueFrom        *time.Time
	DueTo          *time.Time
	Page           shared.PageRequest
}

// Policy is the refund approval matrix. Admin may act at either stage and
// reject is gated by stage like approve.
var Policy = shared.TwoStagePolicy{
	AccountsRoles: []shared.Role{shared.RoleAccountManager, shared.RoleAdmin},
	HOFRoles:      []shared.Role{shared.RoleHOF, shared.RoleAdmin},
	GateReject:    true,
	Denied:        shared.ErrForbidden,
}

// PayerRoles may mark an approved installment paid.
var PayerRoles = []shared.Role{shared.RoleAccountManager, shared.RoleAdmin}
