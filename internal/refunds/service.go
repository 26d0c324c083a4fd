package refunds

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/landbook/landbook/internal/cancellations"
	"github.com/landbook/landbook/internal/events"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service schedules refund installments and drives their approval.
type Service struct {
	repo   Repository
	audit  AuditPort
	events events.Sink
	cache  *stats.Cache
	now    func() time.Time
}

// NewService constructs the refund service.
func NewService(repo Repository, audit AuditPort, sink events.Sink, cache *stats.Cache) *Service {
	return &Service{repo: repo, audit: audit, events: sink, cache: cache, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateSchedule splits an approved cancellation's refundable amount into
// installments. Either every installment is stored or none is.
func (s *Service) CreateSchedule(ctx context.Context, p shared.Principal, in ScheduleInput) ([]Refund, error) {
	if in.CancellationID <= 0 {
		return nil, shared.Wrap(shared.ErrMissingField, "cancellation is required")
	}
	if in.NumberOfInstallments <= 0 {
		return nil, shared.Wrap(shared.ErrValidation, "number of installments must be a positive integer")
	}
	start := s.now()
	if in.StartDate != nil && !in.StartDate.IsZero() {
		start = *in.StartDate
	}
	notes := strings.TrimSpace(in.Notes)

	var parent cancellations.Cancellation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.LockCancellation(ctx, in.CancellationID)
		if err != nil {
			return err
		}
		if c.Status != cancellations.StatusApproved {
			return shared.Wrapf(shared.ErrInvalidState, "cancellation is %s, refunds need an Approved cancellation", c.Status)
		}
		existing, err := tx.CountActive(ctx, c.ID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return shared.Wrapf(shared.ErrScheduleAlreadyExists, "cancellation %d already has %d refund installments", c.ID, existing)
		}
		plan, err := GenerateSchedule(c.RefundableAmount, in.NumberOfInstallments, start)
		if err != nil {
			return err
		}
		rows := make([]Refund, len(plan))
		for i, inst := range plan {
			rows[i] = Refund{
				CancellationID:    c.ID,
				InstallmentNumber: inst.Number,
				DueDate:           inst.DueDate,
				Amount:            inst.Amount,
				PaymentStatus:     PaymentPending,
				ApprovalStatus:    shared.StatusDraft,
				Notes:             notes,
				CreatedBy:         p.UserID,
				IsActive:          true,
			}
		}
		if _, err := tx.InsertInstallments(ctx, rows); err != nil {
			return err
		}
		parent = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, p.UserID, "REFUND_SCHEDULE_CREATE", parent.ID, map[string]any{
		"installments": in.NumberOfInstallments,
		"amount":       parent.RefundableAmount.String(),
	})
	s.bump(ctx)
	if s.events != nil {
		s.events.Emit(ctx, events.New(events.RefundScheduleCreated, cancellations.Entity, parent.ID, p.UserID, parent.RefundableAmount, s.now()).
			With("installments", strconv.Itoa(in.NumberOfInstallments)))
	}
	return s.repo.ListByCancellation(ctx, parent.ID)
}

// Submit moves a Draft installment into review.
func (s *Service) Submit(ctx context.Context, p shared.Principal, id int64) (Refund, error) {
	rf, err := s.repo.Get(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	next, err := Policy.Submit(rf.ApprovalStatus)
	if err != nil {
		return Refund{}, err
	}
	if err := s.transition(ctx, p, rf, next, shared.ApprovalSubmit, ""); err != nil {
		return Refund{}, err
	}
	return s.Get(ctx, id)
}

// Approve advances an installment one stage.
func (s *Service) Approve(ctx context.Context, p shared.Principal, id int64, remarks string) (Refund, error) {
	rf, err := s.repo.Get(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	next, err := Policy.Approve(p.Role, rf.ApprovalStatus)
	if err != nil {
		return Refund{}, err
	}
	if err := s.transition(ctx, p, rf, next, shared.ApprovalApprove, remarks); err != nil {
		return Refund{}, err
	}
	if next == shared.StatusApproved {
		s.emit(ctx, events.RefundApproved, p, rf)
	}
	return s.Get(ctx, id)
}

// Reject declines a pending installment. Remarks are mandatory.
func (s *Service) Reject(ctx context.Context, p shared.Principal, id int64, remarks string) (Refund, error) {
	rf, err := s.repo.Get(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	next, err := Policy.Reject(p.Role, rf.ApprovalStatus, remarks)
	if err != nil {
		return Refund{}, err
	}
	if err := s.transition(ctx, p, rf, next, shared.ApprovalReject, remarks); err != nil {
		return Refund{}, err
	}
	s.emit(ctx, events.RefundRejected, p, rf)
	return s.Get(ctx, id)
}

func (s *Service) transition(ctx context.Context, p shared.Principal, rf Refund, next shared.ApprovalStatus, action shared.ApprovalAction, remarks string) error {
	remarks = strings.TrimSpace(remarks)
	reason := ""
	if next == shared.StatusRejected {
		reason = remarks
	}
	at := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.TransitionApproval(ctx, rf.ID, rf.ApprovalStatus, next, reason); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, shared.ApprovalLog{
			RefID:      rf.ID,
			ActorID:    p.UserID,
			ActorRole:  p.Role,
			Action:     action,
			FromStatus: string(rf.ApprovalStatus),
			ToStatus:   string(next),
			Remarks:    remarks,
			At:         at,
		})
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, p.UserID, "REFUND_"+strings.ToUpper(string(action)), rf.ID, map[string]any{
		"from": string(rf.ApprovalStatus),
		"to":   string(next),
	})
	s.bump(ctx)
	return nil
}

// MarkPaid records the payout of an approved installment.
func (s *Service) MarkPaid(ctx context.Context, p shared.Principal, id int64, in PaymentInput) (Refund, error) {
	rf, err := s.repo.Get(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	if rf.ApprovalStatus != shared.StatusApproved {
		return Refund{}, shared.Wrapf(shared.ErrInvalidState, "installment is %s, only Approved installments can be paid", rf.ApprovalStatus)
	}
	if rf.PaymentStatus != PaymentPending {
		return Refund{}, shared.Wrapf(shared.ErrInvalidState, "installment is already %s", rf.PaymentStatus)
	}
	if !shared.Allowed(p.Role, PayerRoles...) {
		return Refund{}, shared.Wrapf(shared.ErrForbidden, "role %s cannot mark refunds paid", p.Role)
	}
	instrument, err := shared.NormalizePayment(in.PaymentMethod, in.Instrument)
	if err != nil {
		return Refund{}, err
	}
	at := s.now()
	paid := shared.DateOf(at)
	if in.PaidDate != nil && !in.PaidDate.IsZero() {
		paid = shared.DateOf(*in.PaidDate)
	}
	payment := Payment{ID: id, Method: in.PaymentMethod, PaidDate: paid, Instrument: instrument, Notes: strings.TrimSpace(in.Notes)}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.MarkPaid(ctx, payment); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, shared.ApprovalLog{
			RefID:      id,
			ActorID:    p.UserID,
			ActorRole:  p.Role,
			Action:     shared.ApprovalPaid,
			FromStatus: string(PaymentPending),
			ToStatus:   string(PaymentPaid),
			Remarks:    payment.Notes,
			At:         at,
		})
	})
	if err != nil {
		return Refund{}, err
	}
	s.recordAudit(ctx, p.UserID, "REFUND_PAID", id, map[string]any{
		"method": string(in.PaymentMethod),
		"amount": rf.Amount.String(),
	})
	s.bump(ctx)
	rf.PaymentMethod = in.PaymentMethod
	s.emit(ctx, events.RefundPaid, p, rf)
	return s.Get(ctx, id)
}

// Get returns an installment with its approval history.
func (s *Service) Get(ctx context.Context, id int64) (Refund, error) {
	rf, err := s.repo.Get(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	rf.ApprovalHistory = history
	return rf, nil
}

// ListByCancellation returns the schedule of a cancellation in installment order.
func (s *Service) ListByCancellation(ctx context.Context, cancellationID int64) ([]Refund, error) {
	return s.repo.ListByCancellation(ctx, cancellationID)
}

// List returns a filtered page of installments.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Refund, int, error) {
	if filter.ApprovalStatus != "" && !filter.ApprovalStatus.Valid() {
		return nil, 0, shared.Wrapf(shared.ErrValidation, "unknown approval status %q", filter.ApprovalStatus)
	}
	if filter.PaymentStatus != "" && filter.PaymentStatus != PaymentPending && filter.PaymentStatus != PaymentPaid {
		return nil, 0, shared.Wrapf(shared.ErrValidation, "unknown payment status %q", filter.PaymentStatus)
	}
	return s.repo.List(ctx, filter)
}

// Stats returns the cached approval status summary.
func (s *Service) Stats(ctx context.Context) (stats.Summary, error) {
	return s.cache.Fetch(ctx, Entity, func(ctx context.Context) (stats.Summary, error) {
		buckets, err := s.repo.StatusBuckets(ctx)
		if err != nil {
			return stats.Summary{}, err
		}
		return stats.FromBuckets(buckets), nil
	})
}

func (s *Service) emit(ctx context.Context, t events.Type, p shared.Principal, rf Refund) {
	if s.events == nil {
		return
	}
	evt := events.New(t, Entity, rf.ID, p.UserID, rf.Amount, s.now()).
		With("cancellationId", strconv.FormatInt(rf.CancellationID, 10)).
		With("installment", strconv.Itoa(rf.InstallmentNumber))
	if rf.PaymentMethod != "" {
		evt = evt.With("paymentMethod", string(rf.PaymentMethod))
	}
	s.events.Emit(ctx, evt)
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
