// Package events fans domain events out to external sinks.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type names a domain event.
type Type string

const (
	ExpenseSubmitted      Type = "expense.submitted"
	ExpenseApproved       Type = "expense.approved"
	ExpenseRejected       Type = "expense.rejected"
	CancellationApproved  Type = "cancellation.approved"
	CancellationRejected  Type = "cancellation.rejected"
	RefundScheduleCreated Type = "refund.schedule_created"
	RefundApproved        Type = "refund.approved"
	RefundRejected        Type = "refund.rejected"
	RefundPaid            Type = "refund.paid"
	ChequeCleared         Type = "cheque.cleared"
	ChequeBounced         Type = "cheque.bounced"
	ChequeCancelled       Type = "cheque.cancelled"
)

// Event describes something that happened to a record.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	Entity     string            `json:"entity"`
	EntityID   int64             `json:"entityId"`
	ActorID    int64             `json:"actorId"`
	Amount     decimal.Decimal   `json:"amount"`
	OccurredAt time.Time         `json:"occurredAt"`
	Data       map[string]string `json:"data,omitempty"`
}

// New builds an event with a fresh id.
func New(t Type, entity string, entityID, actorID int64, amount decimal.Decimal, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		Entity:     entity,
		EntityID:   entityID,
		ActorID:    actorID,
		Amount:     amount,
		OccurredAt: at.UTC(),
		Data:       map[string]string{},
	}
}

// With returns a copy of e carrying an extra data attribute.
func (e Event) With(key, value string) Event {
	data := make(map[string]string, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}
