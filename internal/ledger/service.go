package ledger

import "context"

// Service exposes read access to the ledger. Writes happen only through
// Insert inside the expense approval transaction.
type Service struct {
	repo Repository
}

// NewService constructs the ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ForReference returns rows posted for a record.
func (s *Service) ForReference(ctx context.Context, model string, id int64) ([]Entry, error) {
	return s.repo.ListByReference(ctx, model, id)
}

// List returns a page of ledger rows.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	return s.repo.List(ctx, filter)
}

// TrialBalance sums debit and credit per account.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	lines, err := s.repo.TrialBalance(ctx)
	if err != nil {
		return TrialBalance{}, err
	}
	return sumLines(lines), nil
}
