package expenses

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/landbook/landbook/internal/ledger"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

// Repository describes persistence used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Expense, error)
	List(ctx context.Context, filter ListFilter) ([]Expense, int, error)
	ListByStatus(ctx context.Context, statuses []shared.ApprovalStatus) ([]Expense, error)
	History(ctx context.Context, id int64) ([]shared.ApprovalLog, error)
	LedgerEntries(ctx context.Context, id int64) ([]ledger.Entry, error)
	StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name string) (Category, error)
}

// TxRepository exposes writes available within a transaction.
type TxRepository interface {
	Insert(ctx context.Context, e Expense) (int64, error)
	// UpdateDraft and SoftDeleteDraft only touch active Draft rows and
	// return shared.ErrStaleState otherwise.
	UpdateDraft(ctx context.Context, e Expense) error
	SoftDeleteDraft(ctx context.Context, id int64) error
	// TransitionStatus moves id from one status to another, returning
	// shared.ErrStaleState when the row is no longer in from.
	TransitionStatus(ctx context.Context, id int64, from, to shared.ApprovalStatus) error
	AppendHistory(ctx context.Context, log shared.ApprovalLog) error
	PostLedger(ctx context.Context, entries []ledger.Entry) error
}

type repository struct {
	db        *pgxpool.Pool
	approvals *shared.ApprovalRecorder
	ledger    ledger.Repository
}

// NewRepository builds the pgx backed repository.
func NewRepository(db *pgxpool.Pool, approvals *shared.ApprovalRecorder) Repository {
	return &repository{db: db, approvals: approvals, ledger: ledger.NewRepository(db)}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx, approvals: r.approvals}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const selectExpense = `SELECT e.id, e.category_id, COALESCE(c.name, ''), e.amount, e.expense_date, e.vendor, e.description,
e.payment_method, e.bank_name, e.cheque_number, e.status, e.created_by, e.is_active, e.created_at, e.updated_at
FROM expenses e LEFT JOIN expense_categories c ON c.id = e.category_id`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	var method, status string
	err := row.Scan(&e.ID, &e.CategoryID, &e.CategoryName, &e.Amount, &e.ExpenseDate, &e.Vendor, &e.Description,
		&method, &e.Instrument.BankName, &e.Instrument.ChequeNumber, &status, &e.CreatedBy, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Expense{}, err
	}
	e.PaymentMethod = shared.PaymentMethod(method)
	e.Status = shared.ApprovalStatus(status)
	return e, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, selectExpense+` WHERE e.id=$1 AND e.is_active`, id))
	if err != nil {
		return Expense{}, shared.TranslateNoRows(err)
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	where := []string{"e.is_active"}
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("e.status = $%d", string(filter.Status))
	}
	if filter.CategoryID > 0 {
		add("e.category_id = $%d", filter.CategoryID)
	}
	if filter.From != nil {
		add("e.expense_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("e.expense_date <= $%d", *filter.To)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(e.vendor ILIKE $%d OR e.description ILIKE $%d)", len(args), len(args)))
	}
	cond := strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM expenses e WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	query := fmt.Sprintf(`%s WHERE %s ORDER BY e.expense_date DESC, e.id DESC LIMIT $%d OFFSET $%d`, selectExpense, cond, len(args)-1, len(args))
	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) ListByStatus(ctx context.Context, statuses []shared.ApprovalStatus) ([]Expense, error) {
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}
	return r.query(ctx, selectExpense+` WHERE e.is_active AND e.status = ANY($1) ORDER BY e.updated_at ASC, e.id ASC`, raw)
}

func (r *repository) query(ctx context.Context, sql string, args ...any) ([]Expense, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *repository) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	return r.approvals.List(ctx, shared.ModuleExpense, id)
}

func (r *repository) LedgerEntries(ctx context.Context, id int64) ([]ledger.Entry, error) {
	return r.ledger.ListByReference(ctx, ledger.ReferenceExpense, id)
}

func (r *repository) StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(amount), 0) FROM expenses WHERE is_active GROUP BY status`)
	if err != nil {
		return nil, err
	}
	return stats.ScanBuckets(rows)
}

func (r *repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.db.QueryRow(ctx, `SELECT id, name, is_active, created_at FROM expense_categories WHERE id=$1 AND is_active`, id).
		Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return Category{}, shared.TranslateNoRows(err)
	}
	return c, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, is_active, created_at FROM expense_categories WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repository) CreateCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	err := r.db.QueryRow(ctx, `INSERT INTO expense_categories (name) VALUES ($1) RETURNING id, name, is_active, created_at`, name).
		Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return Category{}, shared.Wrapf(shared.ErrDuplicateEntry, "category %q already exists", name)
		}
		return Category{}, err
	}
	return c, nil
}

type txRepository struct {
	tx        pgx.Tx
	approvals *shared.ApprovalRecorder
}

func (t *txRepository) Insert(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO expenses
(category_id, amount, expense_date, vendor, description, payment_method, bank_name, cheque_number, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		e.CategoryID, e.Amount, e.ExpenseDate, e.Vendor, e.Description, string(e.PaymentMethod),
		e.Instrument.BankName, e.Instrument.ChequeNumber, string(e.Status), e.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepository) UpdateDraft(ctx context.Context, e Expense) error {
	tag, err := t.tx.Exec(ctx, `UPDATE expenses SET category_id=$2, amount=$3, expense_date=$4, vendor=$5, description=$6,
payment_method=$7, bank_name=$8, cheque_number=$9, updated_at=NOW()
WHERE id=$1 AND is_active AND status='Draft'`,
		e.ID, e.CategoryID, e.Amount, e.ExpenseDate, e.Vendor, e.Description, string(e.PaymentMethod),
		e.Instrument.BankName, e.Instrument.ChequeNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (t *txRepository) SoftDeleteDraft(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE expenses SET is_active=FALSE, updated_at=NOW() WHERE id=$1 AND is_active AND status='Draft'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (t *txRepository) TransitionStatus(ctx context.Context, id int64, from, to shared.ApprovalStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE expenses SET status=$3, updated_at=NOW() WHERE id=$1 AND is_active AND status=$2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (t *txRepository) AppendHistory(ctx context.Context, log shared.ApprovalLog) error {
	log.Module = shared.ModuleExpense
	return t.approvals.Record(ctx, t.tx, log)
}

func (t *txRepository) PostLedger(ctx context.Context, entries []ledger.Entry) error {
	return ledger.Insert(ctx, t.tx, entries)
}
