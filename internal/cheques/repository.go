package cheques

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

// Repository describes persistence used by Service. Every write that depends
// on the current status matches it in the WHERE clause and returns
// shared.ErrStaleState when no row qualified.
type Repository interface {
	Insert(ctx context.Context, c Cheque) (int64, error)
	Update(ctx context.Context, c Cheque, from Status) error
	SoftDelete(ctx context.Context, id int64, from Status) error
	Settle(ctx context.Context, s Settlement) error
	Sweep(ctx context.Context, today time.Time) (SweepResult, error)
	Get(ctx context.Context, id int64) (Cheque, error)
	List(ctx context.Context, filter ListFilter) ([]Cheque, int, error)
	// DueBetween lists open cheques with from < due_date <= to; a nil from
	// has no lower bound.
	DueBetween(ctx context.Context, from *time.Time, to time.Time) ([]Cheque, error)
	StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectCheque = `SELECT id, cheque_number, bank_name, branch, cheque_type, issue_date, due_date, amount,
client_id, sale_id, receipt_id, refund_id, status, notes,
cleared_by, cleared_date, bounced_by, bounced_date, bounce_reason, cancelled_by, cancelled_date, cancel_reason,
created_by, created_at, updated_at FROM cheques`

func scanCheque(row pgx.Row) (Cheque, error) {
	var c Cheque
	var chequeType, status string
	err := row.Scan(&c.ID, &c.ChequeNumber, &c.BankName, &c.Branch, &chequeType, &c.IssueDate, &c.DueDate, &c.Amount,
		&c.ClientID, &c.SaleID, &c.ReceiptID, &c.RefundID, &status, &c.Notes,
		&c.ClearedBy, &c.ClearedDate, &c.BouncedBy, &c.BouncedDate, &c.BounceReason, &c.CancelledBy, &c.CancelledDate, &c.CancelReason,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Cheque{}, err
	}
	c.Type = Type(chequeType)
	c.Status = Status(status)
	return c, nil
}

func collect(rows pgx.Rows) ([]Cheque, error) {
	defer rows.Close()
	items := make([]Cheque, 0)
	for rows.Next() {
		c, err := scanCheque(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func duplicate(err error, c Cheque) error {
	if shared.IsUniqueViolation(err) {
		return shared.Wrapf(shared.ErrDuplicateEntry, "cheque %s of %s is already recorded", c.ChequeNumber, c.BankName)
	}
	return err
}

func (r *repository) Insert(ctx context.Context, c Cheque) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO cheques (cheque_number, bank_name, branch, cheque_type, issue_date, due_date, amount,
client_id, sale_id, receipt_id, refund_id, status, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`,
		c.ChequeNumber, c.BankName, c.Branch, string(c.Type), c.IssueDate, c.DueDate, c.Amount,
		c.ClientID, c.SaleID, c.ReceiptID, c.RefundID, string(c.Status), c.Notes, c.CreatedBy).Scan(&id)
	if err != nil {
		return 0, duplicate(err, c)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, c Cheque, from Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE cheques SET cheque_number=$3, bank_name=$4, branch=$5, cheque_type=$6, issue_date=$7,
due_date=$8, amount=$9, client_id=$10, sale_id=$11, receipt_id=$12, refund_id=$13, status=$14, notes=$15, updated_at=NOW()
WHERE id=$1 AND NOT is_deleted AND status=$2`,
		c.ID, string(from), c.ChequeNumber, c.BankName, c.Branch, string(c.Type), c.IssueDate,
		c.DueDate, c.Amount, c.ClientID, c.SaleID, c.ReceiptID, c.RefundID, string(c.Status), c.Notes)
	if err != nil {
		return duplicate(err, c)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64, from Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE cheques SET is_deleted=TRUE, updated_at=NOW() WHERE id=$1 AND NOT is_deleted AND status=$2`, id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (r *repository) Settle(ctx context.Context, s Settlement) error {
	var query string
	switch s.To {
	case StatusCleared:
		query = `UPDATE cheques SET status=$3, cleared_by=$4, cleared_date=$5, updated_at=NOW() WHERE id=$1 AND NOT is_deleted AND status=$2`
	case StatusBounced:
		query = `UPDATE cheques SET status=$3, bounced_by=$4, bounced_date=$5, bounce_reason=$6, updated_at=NOW() WHERE id=$1 AND NOT is_deleted AND status=$2`
	case StatusCancelled:
		query = `UPDATE cheques SET status=$3, cancelled_by=$4, cancelled_date=$5, cancel_reason=$6, updated_at=NOW() WHERE id=$1 AND NOT is_deleted AND status=$2`
	default:
		return fmt.Errorf("cheques: cannot settle into %s", s.To)
	}
	args := []any{s.ID, string(s.From), string(s.To), s.ActorID, s.Date}
	if s.To != StatusCleared {
		args = append(args, s.Reason)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (r *repository) Sweep(ctx context.Context, today time.Time) (SweepResult, error) {
	var res SweepResult
	err := pgx.BeginTxFunc(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE cheques SET status='Overdue', updated_at=NOW()
WHERE NOT is_deleted AND status IN ('Pending', 'DueToday') AND due_date < $1`, today)
		if err != nil {
			return err
		}
		res.Overdue = tag.RowsAffected()
		tag, err = tx.Exec(ctx, `UPDATE cheques SET status='DueToday', updated_at=NOW()
WHERE NOT is_deleted AND status='Pending' AND due_date = $1`, today)
		if err != nil {
			return err
		}
		res.DueToday = tag.RowsAffected()
		return nil
	})
	return res, err
}

func (r *repository) Get(ctx context.Context, id int64) (Cheque, error) {
	c, err := scanCheque(r.db.QueryRow(ctx, selectCheque+` WHERE id=$1 AND NOT is_deleted`, id))
	if err != nil {
		return Cheque{}, shared.TranslateNoRows(err)
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Cheque, int, error) {
	where := []string{"NOT is_deleted"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Type != "" {
		add("cheque_type = $%d", string(filter.Type))
	}
	if filter.BankName != "" {
		add("bank_name ILIKE $%d", "%"+filter.BankName+"%")
	}
	if filter.SaleID > 0 {
		add("sale_id = $%d", filter.SaleID)
	}
	if filter.DueFrom != nil {
		add("due_date >= $%d", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		add("due_date <= $%d", *filter.DueTo)
	}
	cond := strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cheques WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`%s WHERE %s ORDER BY due_date, id LIMIT $%d OFFSET $%d`, selectCheque, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repository) DueBetween(ctx context.Context, from *time.Time, to time.Time) ([]Cheque, error) {
	rows, err := r.db.Query(ctx, selectCheque+` WHERE NOT is_deleted AND status IN ('Pending', 'DueToday', 'Overdue')
AND ($1::date IS NULL OR due_date > $1) AND due_date <= $2 ORDER BY due_date, id`, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(amount), 0) FROM cheques WHERE NOT is_deleted GROUP BY status`)
	if err != nil {
		return nil, err
	}
	return stats.ScanBuckets(rows)
}
