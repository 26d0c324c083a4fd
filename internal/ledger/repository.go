package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/shared"
)

// Repository reads ledger rows.
type Repository interface {
	ListByReference(ctx context.Context, model string, id int64) ([]Entry, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, int, error)
	TrialBalance(ctx context.Context) ([]BalanceLine, error)
}

// Insert writes entries through q, normally the caller's transaction.
func Insert(ctx context.Context, q shared.DBTX, entries []Entry) error {
	if err := Validate(entries); err != nil {
		return err
	}
	for _, e := range entries {
		_, err := q.Exec(ctx, `INSERT INTO ledger_entries
(transaction_id, account_name, debit, credit, transaction_type, reference_model, reference_id, description, transaction_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.TransactionID, e.AccountName, e.Debit, e.Credit, e.TransactionType, e.ReferenceModel, e.ReferenceID, e.Description, e.TransactionDate, e.CreatedBy)
		if err != nil {
			return fmt.Errorf("ledger: insert %s line: %w", e.AccountName, err)
		}
	}
	return nil
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, transaction_id, account_name, debit, credit, transaction_type, reference_model, reference_id, description, transaction_date, created_by, created_at`

// ListByReference returns rows for a referenced record, oldest first.
func (r *repository) ListByReference(ctx context.Context, model string, id int64) ([]Entry, error) {
	return queryEntries(ctx, r.db, `SELECT `+entryColumns+` FROM ledger_entries WHERE reference_model=$1 AND reference_id=$2 ORDER BY id`, model, id)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	where := []string{"1=1"}
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.AccountName != "" {
		add("account_name = $%d", filter.AccountName)
	}
	if filter.ReferenceModel != "" {
		add("reference_model = $%d", filter.ReferenceModel)
	}
	if filter.From != nil {
		add("transaction_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("transaction_date <= $%d", *filter.To)
	}
	cond := strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM ledger_entries WHERE %s ORDER BY transaction_date DESC, id DESC LIMIT $%d OFFSET $%d`, entryColumns, cond, len(args)-1, len(args))
	entries, err := queryEntries(ctx, r.db, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) TrialBalance(ctx context.Context) ([]BalanceLine, error) {
	rows, err := r.db.Query(ctx, `SELECT account_name, COALESCE(SUM(debit),0), COALESCE(SUM(credit),0)
FROM ledger_entries GROUP BY account_name ORDER BY account_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := make([]BalanceLine, 0)
	for rows.Next() {
		var l BalanceLine
		if err := rows.Scan(&l.AccountName, &l.Debit, &l.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func queryEntries(ctx context.Context, q shared.DBTX, sql string, args ...any) ([]Entry, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountName, &e.Debit, &e.Credit, &e.TransactionType, &e.ReferenceModel, &e.ReferenceID, &e.Description, &e.TransactionDate, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// sumLines fills Balance and the totals of a trial balance.
func sumLines(lines []BalanceLine) TrialBalance {
	tb := TrialBalance{Lines: lines, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for i := range tb.Lines {
		tb.Lines[i].Balance = tb.Lines[i].Debit.Sub(tb.Lines[i].Credit)
		tb.TotalDebit = tb.TotalDebit.Add(tb.Lines[i].Debit)
		tb.TotalCredit = tb.TotalCredit.Add(tb.Lines[i].Credit)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb
}
