package expenses

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/landbook/landbook/internal/ledger"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

type memoryExpenseRepo struct {
	expenses   map[int64]Expense
	categories map[int64]Category
	history    map[int64][]shared.ApprovalLog
	ledger     map[int64][]ledger.Entry
	nextID     int64
	failLedger error
}

type memoryExpenseTx struct {
	repo *memoryExpenseRepo
}

func newMemoryExpenseRepo() *memoryExpenseRepo {
	return &memoryExpenseRepo{
		expenses:   make(map[int64]Expense),
		categories: map[int64]Category{1: {ID: 1, Name: "Fuel", IsActive: true}},
		history:    make(map[int64][]shared.ApprovalLog),
		ledger:     make(map[int64][]ledger.Entry),
		nextID:     100,
	}
}

// WithTx snapshots state and restores it when fn fails.
func (r *memoryExpenseRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	expenses := make(map[int64]Expense, len(r.expenses))
	for k, v := range r.expenses {
		expenses[k] = v
	}
	history := make(map[int64][]shared.ApprovalLog, len(r.history))
	for k, v := range r.history {
		history[k] = append([]shared.ApprovalLog(nil), v...)
	}
	entries := make(map[int64][]ledger.Entry, len(r.ledger))
	for k, v := range r.ledger {
		entries[k] = append([]ledger.Entry(nil), v...)
	}
	if err := fn(ctx, &memoryExpenseTx{repo: r}); err != nil {
		r.expenses, r.history, r.ledger = expenses, history, entries
		return err
	}
	return nil
}

func (r *memoryExpenseRepo) Get(ctx context.Context, id int64) (Expense, error) {
	e, ok := r.expenses[id]
	if !ok || !e.IsActive {
		return Expense{}, shared.ErrNotFound
	}
	e.CategoryName = r.categories[e.CategoryID].Name
	return e, nil
}

func (r *memoryExpenseRepo) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	items := make([]Expense, 0)
	for _, e := range r.expenses {
		if !e.IsActive || (filter.Status != "" && e.Status != filter.Status) {
			continue
		}
		items = append(items, e)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, len(items), nil
}

func (r *memoryExpenseRepo) ListByStatus(ctx context.Context, statuses []shared.ApprovalStatus) ([]Expense, error) {
	items := make([]Expense, 0)
	for _, e := range r.expenses {
		if !e.IsActive {
			continue
		}
		for _, s := range statuses {
			if e.Status == s {
				items = append(items, e)
				break
			}
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *memoryExpenseRepo) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	return append([]shared.ApprovalLog{}, r.history[id]...), nil
}

func (r *memoryExpenseRepo) LedgerEntries(ctx context.Context, id int64) ([]ledger.Entry, error) {
	return append([]ledger.Entry{}, r.ledger[id]...), nil
}

func (r *memoryExpenseRepo) StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error) {
	byStatus := map[string]*stats.StatusBucket{}
	for _, e := range r.expenses {
		if !e.IsActive {
			continue
		}
		b, ok := byStatus[string(e.Status)]
		if !ok {
			b = &stats.StatusBucket{Status: string(e.Status)}
			byStatus[string(e.Status)] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(e.Amount)
	}
	out := make([]stats.StatusBucket, 0, len(byStatus))
	for _, b := range byStatus {
		out = append(out, *b)
	}
	return out, nil
}

func (r *memoryExpenseRepo) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryExpenseRepo) ListCategories(ctx context.Context) ([]Category, error) {
	out := make([]Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryExpenseRepo) CreateCategory(ctx context.Context, name string) (Category, error) {
	for _, c := range r.categories {
		if c.Name == name {
			return Category{}, shared.ErrDuplicateEntry
		}
	}
	r.nextID++
	c := Category{ID: r.nextID, Name: name, IsActive: true, CreatedAt: time.Now()}
	r.categories[c.ID] = c
	return c, nil
}

func (tx *memoryExpenseTx) Insert(ctx context.Context, e Expense) (int64, error) {
	tx.repo.nextID++
	e.ID = tx.repo.nextID
	tx.repo.expenses[e.ID] = e
	return e.ID, nil
}

func (tx *memoryExpenseTx) UpdateDraft(ctx context.Context, e Expense) error {
	current, ok := tx.repo.expenses[e.ID]
	if !ok || !current.IsActive || current.Status != shared.StatusDraft {
		return shared.ErrStaleState
	}
	e.Status = current.Status
	e.IsActive = true
	e.CreatedBy = current.CreatedBy
	tx.repo.expenses[e.ID] = e
	return nil
}

func (tx *memoryExpenseTx) SoftDeleteDraft(ctx context.Context, id int64) error {
	current, ok := tx.repo.expenses[id]
	if !ok || !current.IsActive || current.Status != shared.StatusDraft {
		return shared.ErrStaleState
	}
	current.IsActive = false
	tx.repo.expenses[id] = current
	return nil
}

func (tx *memoryExpenseTx) TransitionStatus(ctx context.Context, id int64, from, to shared.ApprovalStatus) error {
	current, ok := tx.repo.expenses[id]
	if !ok || !current.IsActive || current.Status != from {
		return shared.ErrStaleState
	}
	current.Status = to
	tx.repo.expenses[id] = current
	return nil
}

func (tx *memoryExpenseTx) AppendHistory(ctx context.Context, log shared.ApprovalLog) error {
	tx.repo.history[log.RefID] = append(tx.repo.history[log.RefID], log)
	return nil
}

func (tx *memoryExpenseTx) PostLedger(ctx context.Context, entries []ledger.Entry) error {
	if tx.repo.failLedger != nil {
		return tx.repo.failLedger
	}
	if err := ledger.Validate(entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("no entries")
	}
	id := entries[0].ReferenceID
	tx.repo.ledger[id] = append(tx.repo.ledger[id], entries...)
	return nil
}

// staleExpenseRepo serves pinned Get snapshots, standing in for a request
// that read the row before a concurrent transition committed.
type staleExpenseRepo struct {
	*memoryExpenseRepo
	pinned map[int64]Expense
}

func (r *staleExpenseRepo) Get(ctx context.Context, id int64) (Expense, error) {
	if e, ok := r.pinned[id]; ok {
		return e, nil
	}
	return r.memoryExpenseRepo.Get(ctx, id)
}
