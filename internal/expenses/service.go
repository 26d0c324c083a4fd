package expenses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/landbook/landbook/internal/events"
	"github.com/landbook/landbook/internal/ledger"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates expense capture and approval.
type Service struct {
	repo   Repository
	audit  AuditPort
	events events.Sink
	cache  *stats.Cache
	now    func() time.Time
}

// NewService constructs the expense service. audit, sink and cache may be nil.
func NewService(repo Repository, audit AuditPort, sink events.Sink, cache *stats.Cache) *Service {
	return &Service{repo: repo, audit: audit, events: sink, cache: cache, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) normalize(ctx context.Context, in Input) (Expense, error) {
	if in.CategoryID <= 0 {
		return Expense{}, shared.Wrap(shared.ErrMissingField, "category is required")
	}
	if !in.Amount.IsPositive() {
		return Expense{}, shared.ErrInvalidAmount
	}
	if strings.TrimSpace(in.Description) == "" {
		return Expense{}, shared.Wrap(shared.ErrMissingField, "description is required")
	}
	instrument, err := shared.NormalizePayment(in.PaymentMethod, in.Instrument)
	if err != nil {
		return Expense{}, err
	}
	category, err := s.repo.GetCategory(ctx, in.CategoryID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Expense{}, shared.Wrapf(shared.ErrNotFound, "expense category %d not found", in.CategoryID)
		}
		return Expense{}, err
	}
	date := shared.DateOf(s.now())
	if in.ExpenseDate != nil && !in.ExpenseDate.IsZero() {
		date = shared.DateOf(*in.ExpenseDate)
	}
	return Expense{
		CategoryID:    in.CategoryID,
		CategoryName:  category.Name,
		Amount:        in.Amount,
		ExpenseDate:   date,
		Vendor:        strings.TrimSpace(in.Vendor),
		Description:   strings.TrimSpace(in.Description),
		PaymentMethod: in.PaymentMethod,
		Instrument:    instrument,
	}, nil
}

// Create records a Draft expense.
func (s *Service) Create(ctx context.Context, p shared.Principal, in Input) (Expense, error) {
	exp, err := s.normalize(ctx, in)
	if err != nil {
		return Expense{}, err
	}
	exp.Status = shared.StatusDraft
	exp.CreatedBy = p.UserID
	exp.IsActive = true
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Insert(ctx, exp)
		if err != nil {
			return err
		}
		exp.ID = id
		return nil
	})
	if err != nil {
		return Expense{}, err
	}
	s.recordAudit(ctx, p.UserID, "EXPENSE_CREATE", exp.ID, map[string]any{"amount": exp.Amount.String()})
	s.bump(ctx)
	return s.Get(ctx, exp.ID)
}

// Update replaces the editable fields of a Draft expense.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, in Input) (Expense, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if err := editable(current.Status); err != nil {
		return Expense{}, err
	}
	exp, err := s.normalize(ctx, in)
	if err != nil {
		return Expense{}, err
	}
	exp.ID = id
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateDraft(ctx, exp)
	})
	if err != nil {
		return Expense{}, err
	}
	s.recordAudit(ctx, p.UserID, "EXPENSE_UPDATE", id, nil)
	s.bump(ctx)
	return s.Get(ctx, id)
}

// Delete soft-deletes a Draft expense.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := editable(current.Status); err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SoftDeleteDraft(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, p.UserID, "EXPENSE_DELETE", id, nil)
	s.bump(ctx)
	return nil
}

// Get returns the expense with approval history and ledger rows.
func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	exp, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	exp.ApprovalHistory = history
	if exp.Status == shared.StatusApproved {
		entries, err := s.repo.LedgerEntries(ctx, id)
		if err != nil {
			return Expense{}, err
		}
		exp.LedgerEntries = entries
	}
	return exp, nil
}

// List returns a filtered page of expenses.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, shared.Wrapf(shared.ErrValidation, "unknown status %q", filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// Submit moves a Draft expense to PendingAccounts.
func (s *Service) Submit(ctx context.Context, p shared.Principal, id int64) (Expense, error) {
	exp, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	next, err := Policy.Submit(exp.Status)
	if err != nil {
		return Expense{}, err
	}
	if err := s.transition(ctx, p, exp, next, shared.ApprovalSubmit, ""); err != nil {
		return Expense{}, err
	}
	s.emit(ctx, events.ExpenseSubmitted, p, exp)
	return s.Get(ctx, id)
}

// Approve advances the expense one stage. Final approval posts the ledger
// in the same transaction as the status change.
func (s *Service) Approve(ctx context.Context, p shared.Principal, id int64, remarks string) (Expense, error) {
	exp, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	next, err := Policy.Approve(p.Role, exp.Status)
	if err != nil {
		return Expense{}, err
	}
	if err := s.transition(ctx, p, exp, next, shared.ApprovalApprove, remarks); err != nil {
		return Expense{}, err
	}
	if next == shared.StatusApproved {
		s.emit(ctx, events.ExpenseApproved, p, exp)
	}
	return s.Get(ctx, id)
}

// Reject moves a pending expense to Rejected. Remarks are mandatory.
func (s *Service) Reject(ctx context.Context, p shared.Principal, id int64, remarks string) (Expense, error) {
	exp, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	next, err := Policy.Reject(p.Role, exp.Status, remarks)
	if err != nil {
		return Expense{}, err
	}
	if err := s.transition(ctx, p, exp, next, shared.ApprovalReject, remarks); err != nil {
		return Expense{}, err
	}
	s.emit(ctx, events.ExpenseRejected, p, exp)
	return s.Get(ctx, id)
}

func (s *Service) transition(ctx context.Context, p shared.Principal, exp Expense, next shared.ApprovalStatus, action shared.ApprovalAction, remarks string) error {
	at := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.TransitionStatus(ctx, exp.ID, exp.Status, next); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, shared.ApprovalLog{
			RefID:      exp.ID,
			ActorID:    p.UserID,
			ActorRole:  p.Role,
			Action:     action,
			FromStatus: string(exp.Status),
			ToStatus:   string(next),
			Remarks:    strings.TrimSpace(remarks),
			At:         at,
		}); err != nil {
			return err
		}
		if next != shared.StatusApproved {
			return nil
		}
		entries, err := ledger.BuildExpensePosting(ledger.ExpensePosting{
			ExpenseID:     exp.ID,
			Amount:        exp.Amount,
			Date:          exp.ExpenseDate,
			PaymentMethod: exp.PaymentMethod,
			Vendor:        exp.Vendor,
			Description:   exp.Description,
			ActorID:       p.UserID,
		})
		if err != nil {
			return err
		}
		return tx.PostLedger(ctx, entries)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, p.UserID, "EXPENSE_"+strings.ToUpper(string(action)), exp.ID, map[string]any{
		"from": string(exp.Status),
		"to":   string(next),
	})
	s.bump(ctx)
	return nil
}

// ApprovalQueue lists the expenses waiting on the caller's role.
func (s *Service) ApprovalQueue(ctx context.Context, p shared.Principal) ([]Expense, error) {
	statuses := Policy.QueueFor(p.Role)
	if p.Role == shared.RoleAdmin {
		statuses = []shared.ApprovalStatus{shared.StatusPendingAccounts, shared.StatusPendingHOF}
	}
	if len(statuses) == 0 {
		return []Expense{}, nil
	}
	return s.repo.ListByStatus(ctx, statuses)
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

// CreateCategory adds an expense category.
func (s *Service) CreateCategory(ctx context.Context, p shared.Principal, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, shared.Wrap(shared.ErrMissingField, "category name is required")
	}
	c, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		return Category{}, err
	}
	s.recordAudit(ctx, p.UserID, "EXPENSE_CATEGORY_CREATE", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// ListCategories returns active categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) emit(ctx context.Context, t events.Type, p shared.Principal, exp Expense) {
	if s.events == nil {
		return
	}
	evt := events.New(t, Entity, exp.ID, p.UserID, exp.Amount, s.now()).
		With("vendor", exp.Vendor).
		With("paymentMethod", string(exp.PaymentMethod))
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
