package accounts

import (
	"context"
	"strings"

	"github.com/landbook/landbook/internal/shared"
)

// AuditPort records audit entries.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages bank and cash accounts.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService constructs the account service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func normalize(in Input) (Account, error) {
	a := Account{
		Kind:           in.Kind,
		Name:           strings.TrimSpace(in.Name),
		BankName:       strings.TrimSpace(in.BankName),
		AccountTitle:   strings.TrimSpace(in.AccountTitle),
		AccountNumber:  strings.TrimSpace(in.AccountNumber),
		Branch:         strings.TrimSpace(in.Branch),
		OpeningBalance: in.OpeningBalance,
	}
	if a.OpeningBalance.IsNegative() {
		return Account{}, shared.Wrap(shared.ErrInvalidAmount, "opening balance cannot be negative")
	}
	switch a.Kind {
	case KindBank:
		if a.BankName == "" || a.AccountNumber == "" {
			return Account{}, shared.Wrap(shared.ErrMissingField, "bank name and account number are required for bank accounts")
		}
		if a.Name == "" {
			a.Name = a.BankName + " " + a.AccountNumber
		}
	case KindCash:
		if a.Name == "" {
			return Account{}, shared.Wrap(shared.ErrMissingField, "name is required for cash accounts")
		}
		a.BankName, a.AccountTitle, a.AccountNumber, a.Branch = "", "", "", ""
	case "":
		return Account{}, shared.Wrap(shared.ErrMissingField, "account kind is required")
	default:
		return Account{}, shared.Wrapf(shared.ErrValidation, "unknown account kind %q", a.Kind)
	}
	return a, nil
}

// Create registers an account.
func (s *Service) Create(ctx context.Context, p shared.Principal, in Input) (Account, error) {
	a, err := normalize(in)
	if err != nil {
		return Account{}, err
	}
	a.CreatedBy = p.UserID
	id, err := s.repo.Insert(ctx, a)
	if err != nil {
		return Account{}, err
	}
	s.recordAudit(ctx, p.UserID, "ACCOUNT_CREATE", id, map[string]any{"kind": string(a.Kind), "name": a.Name})
	return s.repo.Get(ctx, id)
}

// Update edits an active account. The kind cannot change.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, in Input) (Account, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if !current.IsActive {
		return Account{}, shared.Wrap(shared.ErrInvalidState, "account is inactive")
	}
	if in.Kind == "" {
		in.Kind = current.Kind
	}
	if in.Kind != current.Kind {
		return Account{}, shared.Wrap(shared.ErrValidation, "account kind cannot be changed")
	}
	a, err := normalize(in)
	if err != nil {
		return Account{}, err
	}
	a.ID = id
	if err := s.repo.Update(ctx, a); err != nil {
		return Account{}, err
	}
	s.recordAudit(ctx, p.UserID, "ACCOUNT_UPDATE", id, nil)
	return s.repo.Get(ctx, id)
}

// Deactivate retires an account.
func (s *Service) Deactivate(ctx context.Context, p shared.Principal, id int64) (Account, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if !current.IsActive {
		return Account{}, shared.Wrap(shared.ErrInvalidState, "account is already inactive")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return Account{}, err
	}
	s.recordAudit(ctx, p.UserID, "ACCOUNT_DEACTIVATE", id, nil)
	return s.repo.Get(ctx, id)
}

// Get returns an account by id, active or not.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of accounts.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Account, int, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, 0, shared.Wrapf(shared.ErrValidation, "unknown account kind %q", filter.Kind)
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditEntry(actorID, action, Entity, id, meta))
}
