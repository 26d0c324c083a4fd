package cancellations

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

// Repository describes persistence used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Cancellation, error)
	List(ctx context.Context, filter ListFilter) ([]Cancellation, int, error)
	History(ctx context.Context, id int64) ([]shared.ApprovalLog, error)
	StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error)
}

// TxRepository exposes writes available within a transaction.
type TxRepository interface {
	// HasOpenForSale reports a Pending or Approved cancellation for sale.
	HasOpenForSale(ctx context.Context, saleID int64) (bool, error)
	Insert(ctx context.Context, c Cancellation) (int64, error)
	// Decide applies d when the row is still in d.From, otherwise it
	// returns shared.ErrStaleState.
	Decide(ctx context.Context, d Decision) error
	AppendHistory(ctx context.Context, log shared.ApprovalLog) error
}

type repository struct {
	db        *pgxpool.Pool
	approvals *shared.ApprovalRecorder
}

// NewRepository builds the pgx backed repository.
func NewRepository(db *pgxpool.Pool, approvals *shared.ApprovalRecorder) Repository {
	return &repository{db: db, approvals: approvals}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx, approvals: r.approvals}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const selectCancellation = `SELECT id, sale_id, reason, refundable_amount, status, decided_by, decided_at, decision_remarks,
created_by, is_active, created_at, updated_at FROM cancellations`

// ScanRow reads a cancellation row selected with the package column order.
func ScanRow(row pgx.Row) (Cancellation, error) {
	var c Cancellation
	var status string
	err := row.Scan(&c.ID, &c.SaleID, &c.Reason, &c.RefundableAmount, &status, &c.DecidedBy, &c.DecidedAt, &c.DecisionRemarks,
		&c.CreatedBy, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Cancellation{}, err
	}
	c.Status = Status(status)
	return c, nil
}

// SelectForUpdate locks an active cancellation row inside tx.
func SelectForUpdate(ctx context.Context, tx pgx.Tx, id int64) (Cancellation, error) {
	c, err := ScanRow(tx.QueryRow(ctx, selectCancellation+` WHERE id=$1 AND is_active FOR UPDATE`, id))
	if err != nil {
		return Cancellation{}, shared.TranslateNoRows(err)
	}
	return c, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Cancellation, error) {
	c, err := ScanRow(r.db.QueryRow(ctx, selectCancellation+` WHERE id=$1 AND is_active`, id))
	if err != nil {
		return Cancellation{}, shared.TranslateNoRows(err)
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Cancellation, int, error) {
	where := []string{"is_active"}
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.SaleID > 0 {
		args = append(args, filter.SaleID)
		where = append(where, fmt.Sprintf("sale_id = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cancellations WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, selectCancellation, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Cancellation, 0)
	for rows.Next() {
		c, err := ScanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repository) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	return r.approvals.List(ctx, shared.ModuleCancellation, id)
}

func (r *repository) StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(refundable_amount), 0) FROM cancellations WHERE is_active GROUP BY status`)
	if err != nil {
		return nil, err
	}
	return stats.ScanBuckets(rows)
}

type txRepository struct {
	tx        pgx.Tx
	approvals *shared.ApprovalRecorder
}

func (t *txRepository) HasOpenForSale(ctx context.Context, saleID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cancellations WHERE sale_id=$1 AND is_active AND status IN ('Pending', 'Approved'))`, saleID).Scan(&exists)
	return exists, err
}

func (t *txRepository) Insert(ctx context.Context, c Cancellation) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO cancellations (sale_id, reason, refundable_amount, status, created_by)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, c.SaleID, c.Reason, c.RefundableAmount, string(c.Status), c.CreatedBy).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, shared.Wrapf(shared.ErrDuplicateEntry, "sale %d already has an open cancellation", c.SaleID)
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepository) Decide(ctx context.Context, d Decision) error {
	tag, err := t.tx.Exec(ctx, `UPDATE cancellations SET status=$3, decided_by=$4, decided_at=$5, decision_remarks=$6, updated_at=NOW()
WHERE id=$1 AND is_active AND status=$2`, d.ID, string(d.From), string(d.To), d.ActorID, d.At, d.Remarks)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (t *txRepository) AppendHistory(ctx context.Context, log shared.ApprovalLog) error {
	log.Module = shared.ModuleCancellation
	return t.approvals.Record(ctx, t.tx, log)
}
