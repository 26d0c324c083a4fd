package cheques

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/landbook/landbook/internal/events"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the cheque register.
type Service struct {
	repo   Repository
	audit  AuditPort
	events events.Sink
	cache  *stats.Cache
	now    func() time.Time
}

// NewService constructs the cheque service.
func NewService(repo Repository, audit AuditPort, sink events.Sink, cache *stats.Cache) *Service {
	return &Service{repo: repo, audit: audit, events: sink, cache: cache, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) today() time.Time {
	return shared.DateOf(s.now())
}

func (s *Service) normalize(in Input) (Cheque, error) {
	number := strings.TrimSpace(in.ChequeNumber)
	if number == "" {
		return Cheque{}, shared.Wrap(shared.ErrMissingField, "cheque number is required")
	}
	bank := strings.TrimSpace(in.BankName)
	if bank == "" {
		return Cheque{}, shared.Wrap(shared.ErrMissingField, "bank name is required")
	}
	if in.DueDate == nil || in.DueDate.IsZero() {
		return Cheque{}, shared.Wrap(shared.ErrMissingField, "due date is required")
	}
	if !in.Amount.IsPositive() {
		return Cheque{}, shared.ErrInvalidAmount
	}
	chequeType := in.Type
	if chequeType == "" {
		chequeType = TypePDC
	}
	if !chequeType.Valid() {
		return Cheque{}, shared.Wrapf(shared.ErrValidation, "unknown cheque type %q", in.Type)
	}
	issue := s.today()
	if in.IssueDate != nil && !in.IssueDate.IsZero() {
		issue = shared.DateOf(*in.IssueDate)
	}
	due := shared.DateOf(*in.DueDate)
	if due.Before(issue) {
		return Cheque{}, shared.Wrap(shared.ErrValidation, "due date cannot be before issue date")
	}
	return Cheque{
		ChequeNumber: number,
		BankName:     bank,
		Branch:       strings.TrimSpace(in.Branch),
		Type:         chequeType,
		IssueDate:    issue,
		DueDate:      due,
		Amount:       in.Amount,
		ClientID:     in.ClientID,
		SaleID:       in.SaleID,
		ReceiptID:    in.ReceiptID,
		RefundID:     in.RefundID,
		Status:       DeriveStatus(due, s.today()),
		Notes:        strings.TrimSpace(in.Notes),
	}, nil
}

// Create registers a cheque. Its open status follows the due date.
func (s *Service) Create(ctx context.Context, p shared.Principal, in Input) (Cheque, error) {
	c, err := s.normalize(in)
	if err != nil {
		return Cheque{}, err
	}
	c.CreatedBy = p.UserID
	id, err := s.repo.Insert(ctx, c)
	if err != nil {
		return Cheque{}, err
	}
	s.recordAudit(ctx, p.UserID, "CHEQUE_CREATE", id, map[string]any{"number": c.ChequeNumber, "amount": c.Amount.String()})
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Update replaces the details of an open cheque.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, in Input) (Cheque, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Cheque{}, err
	}
	if current.Status.IsTerminal() {
		return Cheque{}, shared.Wrapf(shared.ErrFinalized, "cheque is %s and can no longer be edited", current.Status)
	}
	c, err := s.normalize(in)
	if err != nil {
		return Cheque{}, err
	}
	c.ID = id
	if err := s.repo.Update(ctx, c, current.Status); err != nil {
		return Cheque{}, err
	}
	s.recordAudit(ctx, p.UserID, "CHEQUE_UPDATE", id, nil)
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes an open cheque.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == StatusCleared {
		return shared.Wrap(shared.ErrFinalized, "cleared cheques cannot be deleted")
	}
	if current.Status.IsTerminal() {
		return shared.Wrapf(shared.ErrFinalized, "cheque is %s and can no longer be deleted", current.Status)
	}
	if err := s.repo.SoftDelete(ctx, id, current.Status); err != nil {
		return err
	}
	s.recordAudit(ctx, p.UserID, "CHEQUE_DELETE", id, nil)
	s.bump(ctx)
	return nil
}

// MarkCleared settles the cheque as cleared on date, defaulting to today.
func (s *Service) MarkCleared(ctx context.Context, p shared.Principal, id int64, date *time.Time) (Cheque, error) {
	return s.settle(ctx, p, id, StatusCleared, "", date)
}

// MarkBounced settles the cheque as bounced. A reason is mandatory.
func (s *Service) MarkBounced(ctx context.Context, p shared.Principal, id int64, reason string, date *time.Time) (Cheque, error) {
	if strings.TrimSpace(reason) == "" {
		return Cheque{}, shared.Wrap(shared.ErrMissingField, "bounce reason is required")
	}
	return s.settle(ctx, p, id, StatusBounced, reason, date)
}

// Cancel withdraws the cheque. A reason is mandatory.
func (s *Service) Cancel(ctx context.Context, p shared.Principal, id int64, reason string, date *time.Time) (Cheque, error) {
	if strings.TrimSpace(reason) == "" {
		return Cheque{}, shared.Wrap(shared.ErrMissingField, "cancellation reason is required")
	}
	return s.settle(ctx, p, id, StatusCancelled, reason, date)
}

var alreadyErr = map[Status]*shared.DomainError{
	StatusCleared:   shared.ErrAlreadyCleared,
	StatusBounced:   shared.ErrAlreadyBounced,
	StatusCancelled: shared.ErrAlreadyCancelled,
}

var settledEvent = map[Status]events.Type{
	StatusCleared:   events.ChequeCleared,
	StatusBounced:   events.ChequeBounced,
	StatusCancelled: events.ChequeCancelled,
}

func (s *Service) settle(ctx context.Context, p shared.Principal, id int64, to Status, reason string, date *time.Time) (Cheque, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Cheque{}, err
	}
	if current.Status == to {
		return Cheque{}, alreadyErr[to]
	}
	if current.Status.IsTerminal() {
		return Cheque{}, shared.Wrapf(shared.ErrFinalized, "cheque is already %s", current.Status)
	}
	on := s.today()
	if date != nil && !date.IsZero() {
		on = shared.DateOf(*date)
	}
	reason = strings.TrimSpace(reason)
	err = s.repo.Settle(ctx, Settlement{ID: id, From: current.Status, To: to, ActorID: p.UserID, Date: on, Reason: reason})
	if err != nil {
		return Cheque{}, err
	}
	s.recordAudit(ctx, p.UserID, "CHEQUE_"+strings.ToUpper(string(to)), id, map[string]any{
		"from":   string(current.Status),
		"reason": reason,
	})
	s.bump(ctx)
	if s.events != nil {
		evt := events.New(settledEvent[to], Entity, id, p.UserID, current.Amount, s.now()).
			With("chequeNumber", current.ChequeNumber).
			With("bankName", current.BankName)
		if reason != "" {
			evt = evt.With("reason", reason)
		}
		if current.SaleID != nil {
			evt = evt.With("saleId", strconv.FormatInt(*current.SaleID, 10))
		}
		s.events.Emit(ctx, evt)
	}
	return s.repo.Get(ctx, id)
}

// Get returns a cheque by id.
func (s *Service) Get(ctx context.Context, id int64) (Cheque, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of cheques.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Cheque, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.Wrapf(shared.ErrValidation, "unknown status %q", filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, shared.Wrapf(shared.ErrValidation, "unknown cheque type %q", filter.Type)
	}
	return s.repo.List(ctx, filter)
}

// Due lists open cheques due on or before today.
func (s *Service) Due(ctx context.Context, today time.Time) ([]Cheque, error) {
	return s.repo.DueBetween(ctx, nil, shared.DateOf(today))
}

// Upcoming lists open cheques due after today and within days.
func (s *Service) Upcoming(ctx context.Context, today time.Time, days int) ([]Cheque, error) {
	if days == 0 {
		days = DefaultUpcomingDays
	}
	if days < 0 || days > MaxUpcomingDays {
		return nil, shared.Wrapf(shared.ErrValidation, "days must be between 1 and %d", MaxUpcomingDays)
	}
	from := shared.DateOf(today)
	return s.repo.DueBetween(ctx, &from, from.AddDate(0, 0, days))
}

// Today returns the service's current calendar date.
func (s *Service) Today() time.Time {
	return s.today()
}

// SweepDueStatuses re-derives open statuses from due dates: Pending cheques
// due today become DueToday and open cheques past due become Overdue.
func (s *Service) SweepDueStatuses(ctx context.Context, today time.Time) (SweepResult, error) {
	if today.IsZero() {
		return SweepResult{}, errors.New("cheques: sweep date required")
	}
	res, err := s.repo.Sweep(ctx, shared.DateOf(today))
	if err != nil {
		return SweepResult{}, err
	}
	if res.DueToday+res.Overdue > 0 {
		s.bump(ctx)
	}
	return res, nil
}

// Stats returns the cached status summary.
func (s *Service) Stats(ctx context.Context) (stats.Summary, error) {
	return s.cache.Fetch(ctx, Entity, func(ctx context.Context) (stats.Summary, error) {
		buckets, err := s.repo.StatusBuckets(ctx)
		if err != nil {
			return stats.Summary{}, err
		}
		return stats.FromBuckets(buckets), nil
	})
}

func (s *Service) bump(ctx context.Context) {
	_ = s.cache.Bump(ctx, Entity)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditEntry(actorID, action, Entity, id, meta))
}
