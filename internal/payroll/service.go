package payroll

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages employee cost sheets.
type Service struct {
	repo  Repository
	audit AuditPort
	cache *stats.Cache
}

// NewService constructs the payroll service.
func NewService(repo Repository, audit AuditPort, cache *stats.Cache) *Service {
	return &Service{repo: repo, audit: audit, cache: cache}
}

func normalize(in Input) (EmployeeCost, error) {
	if in.EmployeeID <= 0 {
		return EmployeeCost{}, shared.Wrap(shared.ErrMissingField, "employee is required")
	}
	if in.Month < 1 || in.Month > 12 {
		return EmployeeCost{}, shared.Wrap(shared.ErrValidation, "month must be between 1 and 12")
	}
	if in.Year < 2000 || in.Year > 2100 {
		return EmployeeCost{}, shared.Wrap(shared.ErrValidation, "year must be between 2000 and 2100")
	}
	comp := in.Components
	for _, v := range append(comp.earnings(), comp.withholdings()...) {
		if v.IsNegative() {
			return EmployeeCost{}, shared.Wrap(shared.ErrInvalidAmount, "cost components cannot be negative")
		}
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return EmployeeCost{}, shared.Wrapf(shared.ErrValidation, "unsupported payment method %q", in.PaymentMethod)
	}
	var paid *time.Time
	if in.PaymentDate != nil && !in.PaymentDate.IsZero() {
		d := shared.DateOf(*in.PaymentDate)
		paid = &d
	}
	return EmployeeCost{
		EmployeeID:    in.EmployeeID,
		Month:         in.Month,
		Year:          in.Year,
		Components:    comp,
		NetPay:        comp.Net(),
		PaymentDate:   paid,
		PaymentMethod: in.PaymentMethod,
		Notes:         strings.TrimSpace(in.Notes),
	}, nil
}

// ensureFreePeriod fails when another active sheet covers the same period.
func (s *Service) ensureFreePeriod(ctx context.Context, c EmployeeCost) error {
	existing, err := s.repo.FindPeriod(ctx, c.EmployeeID, c.Month, c.Year)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != c.ID:
		return shared.Wrapf(shared.ErrDuplicateEntry, "employee %d already has a cost sheet for %02d/%d", c.EmployeeID, c.Month, c.Year)
	}
	return nil
}

// Create records a cost sheet with computed net pay.
func (s *Service) Create(ctx context.Context, p shared.Principal, in Input) (EmployeeCost, error) {
	c, err := normalize(in)
	if err != nil {
		return EmployeeCost{}, err
	}
	if err := s.ensureFreePeriod(ctx, c); err != nil {
		return EmployeeCost{}, err
	}
	c.CreatedBy = p.UserID
	id, err := s.repo.Insert(ctx, c)
	if err != nil {
		return EmployeeCost{}, err
	}
	s.recordAudit(ctx, p.UserID, "EMPLOYEE_COST_CREATE", id, map[string]any{"net_pay": c.NetPay.String()})
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Update replaces a cost sheet and recomputes net pay.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, in Input) (EmployeeCost, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return EmployeeCost{}, err
	}
	c, err := normalize(in)
	if err != nil {
		return EmployeeCost{}, err
	}
	c.ID = id
	if err := s.ensureFreePeriod(ctx, c); err != nil {
		return EmployeeCost{}, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return EmployeeCost{}, err
	}
	s.recordAudit(ctx, p.UserID, "EMPLOYEE_COST_UPDATE", id, map[string]any{"net_pay": c.NetPay.String()})
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes a cost sheet.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, p.UserID, "EMPLOYEE_COST_DELETE", id, nil)
	s.bump(ctx)
	return nil
}

// Get returns a cost sheet by id.
func (s *Service) Get(ctx context.Context, id int64) (EmployeeCost, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of cost sheets.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]EmployeeCost, int, error) {
	if filter.Month < 0 || filter.Month > 12 {
		return nil, 0, shared.Wrap(shared.ErrValidation, "month must be between 1 and 12")
	}
	return s.repo.List(ctx, filter)
}

// Stats summarizes net pay by Paid and Unpaid sheets.
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
