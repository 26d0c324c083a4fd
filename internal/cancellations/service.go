package cancellations

import (
	"context"
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

// Service manages cancellation requests.
type Service struct {
	repo   Repository
	audit  AuditPort
	events events.Sink
	cache  *stats.Cache
	now    func() time.Time
}

// NewService constructs the cancellation service.
func NewService(repo Repository, audit AuditPort, sink events.Sink, cache *stats.Cache) *Service {
	return &Service{repo: repo, audit: audit, events: sink, cache: cache, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create opens a Pending cancellation for a sale.
func (s *Service) Create(ctx context.Context, p shared.Principal, in CreateInput) (Cancellation, error) {
	if in.SaleID <= 0 {
		return Cancellation{}, shared.Wrap(shared.ErrMissingField, "sale is required")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Cancellation{}, shared.Wrap(shared.ErrMissingField, "reason is required")
	}
	if !in.RefundableAmount.IsPositive() {
		return Cancellation{}, shared.ErrInvalidAmount
	}
	c := Cancellation{
		SaleID:           in.SaleID,
		Reason:           reason,
		RefundableAmount: in.RefundableAmount,
		Status:           StatusPending,
		CreatedBy:        p.UserID,
		IsActive:         true,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		open, err := tx.HasOpenForSale(ctx, in.SaleID)
		if err != nil {
			return err
		}
		if open {
			return shared.Wrapf(shared.ErrDuplicateEntry, "sale %d already has an open cancellation", in.SaleID)
		}
		id, err := tx.Insert(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return Cancellation{}, err
	}
	s.recordAudit(ctx, p.UserID, "CANCELLATION_CREATE", c.ID, map[string]any{
		"sale_id": in.SaleID,
		"amount":  in.RefundableAmount.String(),
	})
	s.bump(ctx)
	return s.Get(ctx, c.ID)
}

// Approve accepts a Pending cancellation, enabling its refund schedule.
func (s *Service) Approve(ctx context.Context, p shared.Principal, id int64, remarks string) (Cancellation, error) {
	return s.decide(ctx, p, id, StatusApproved, remarks)
}

// Reject declines a Pending cancellation. Remarks are mandatory.
func (s *Service) Reject(ctx context.Context, p shared.Principal, id int64, remarks string) (Cancellation, error) {
	if strings.TrimSpace(remarks) == "" {
		return Cancellation{}, shared.Wrap(shared.ErrMissingField, "remarks are required to reject")
	}
	return s.decide(ctx, p, id, StatusRejected, remarks)
}

func (s *Service) decide(ctx context.Context, p shared.Principal, id int64, to Status, remarks string) (Cancellation, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Cancellation{}, err
	}
	if c.Status != StatusPending {
		return Cancellation{}, shared.Wrapf(shared.ErrInvalidState, "cancellation is %s", c.Status)
	}
	if !shared.Allowed(p.Role, DeciderRoles...) {
		return Cancellation{}, shared.Wrap(shared.ErrForbidden, "only HOF or Admin may decide cancellations")
	}
	remarks = strings.TrimSpace(remarks)
	at := s.now()
	action := shared.ApprovalApprove
	if to == StatusRejected {
		action = shared.ApprovalReject
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Decide(ctx, Decision{ID: id, From: c.Status, To: to, ActorID: p.UserID, At: at, Remarks: remarks}); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, shared.ApprovalLog{
			RefID:      id,
			ActorID:    p.UserID,
			ActorRole:  p.Role,
			Action:     action,
			FromStatus: string(c.Status),
			ToStatus:   string(to),
			Remarks:    remarks,
			At:         at,
		})
	})
	if err != nil {
		return Cancellation{}, err
	}
	s.recordAudit(ctx, p.UserID, "CANCELLATION_"+strings.ToUpper(string(action)), id, map[string]any{"remarks": remarks})
	s.bump(ctx)
	if s.events != nil {
		t := events.CancellationApproved
		if to == StatusRejected {
			t = events.CancellationRejected
		}
		s.events.Emit(ctx, events.New(t, Entity, id, p.UserID, c.RefundableAmount, at).
			With("saleId", formatID(c.SaleID)))
	}
	return s.Get(ctx, id)
}

// Get returns a cancellation with its decision history.
func (s *Service) Get(ctx context.Context, id int64) (Cancellation, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Cancellation{}, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return Cancellation{}, err
	}
	c.ApprovalHistory = history
	return c, nil
}

// List returns a filtered page of cancellations.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Cancellation, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.Wrapf(shared.ErrValidation, "unknown status %q", filter.Status)
	}
	return s.repo.List(ctx, filter)
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
