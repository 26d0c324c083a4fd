package refunds

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/landbook/landbook/internal/cancellations"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

// Repository describes persistence used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Refund, error)
	List(ctx context.Context, filter ListFilter) ([]Refund, int, error)
	ListByCancellation(ctx context.Context, cancellationID int64) ([]Refund, error)
	History(ctx context.Context, id int64) ([]shared.ApprovalLog, error)
	StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error)
}

// TxRepository exposes writes available within a transaction.
type TxRepository interface {
	// LockCancellation loads the parent cancellation and holds its row lock
	// until the transaction ends.
	LockCancellation(ctx context.Context, id int64) (cancellations.Cancellation, error)
	CountActive(ctx context.Context, cancellationID int64) (int, error)
	InsertInstallments(ctx context.Context, refunds []Refund) ([]int64, error)
	// TransitionApproval moves id between approval statuses, returning
	// shared.ErrStaleState when the row is no longer in from.
	TransitionApproval(ctx context.Context, id int64, from, to shared.ApprovalStatus, rejectionReason string) error
	// MarkPaid records a payout on an approved, unpaid installment, returning
	// shared.ErrStaleState when the row changed underneath.
	MarkPaid(ctx context.Context, p Payment) error
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

const selectRefund = `SELECT id, cancellation_id, installment_number, due_date, amount, payment_status, approval_status,
paid_date, payment_method, bank_name, cheque_number, rejection_reason, notes, created_by, is_active, created_at, updated_at
FROM refunds`

func scanRefund(row pgx.Row) (Refund, error) {
	var (
		rf                    Refund
		payStatus, apprStatus string
		method                string
	)
	err := row.Scan(&rf.ID, &rf.CancellationID, &rf.InstallmentNumber, &rf.DueDate, &rf.Amount, &payStatus, &apprStatus,
		&rf.PaidDate, &method, &rf.Instrument.BankName, &rf.Instrument.ChequeNumber, &rf.RejectionReason, &rf.Notes,
		&rf.CreatedBy, &rf.IsActive, &rf.CreatedAt, &rf.UpdatedAt)
	if err != nil {
		return Refund{}, err
	}
	rf.PaymentStatus = PaymentStatus(payStatus)
	rf.ApprovalStatus = shared.ApprovalStatus(apprStatus)
	rf.PaymentMethod = shared.PaymentMethod(method)
	return rf, nil
}

func collect(rows pgx.Rows) ([]Refund, error) {
	defer rows.Close()
	items := make([]Refund, 0)
	for rows.Next() {
		rf, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rf)
	}
	return items, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Refund, error) {
	rf, err := scanRefund(r.db.QueryRow(ctx, selectRefund+` WHERE id=$1 AND is_active`, id))
	if err != nil {
		return Refund{}, shared.TranslateNoRows(err)
	}
	return rf, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Refund, int, error) {
	where := []string{"is_active"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.CancellationID > 0 {
		add("cancellation_id = $%d", filter.CancellationID)
	}
	if filter.ApprovalStatus != "" {
		add("approval_status = $%d", string(filter.ApprovalStatus))
	}
	if filter.PaymentStatus != "" {
		add("payment_status = $%d", string(filter.PaymentStatus))
	}
	if filter.DueFrom != nil {
		add("due_date >= $%d", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		add("due_date <= $%d", *filter.DueTo)
	}
	cond := strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM refunds WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`%s WHERE %s ORDER BY due_date, cancellation_id, installment_number LIMIT $%d OFFSET $%d`,
		selectRefund, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repository) ListByCancellation(ctx context.Context, cancellationID int64) ([]Refund, error) {
	rows, err := r.db.Query(ctx, selectRefund+` WHERE cancellation_id=$1 AND is_active ORDER BY installment_number`, cancellationID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	return r.approvals.List(ctx, shared.ModuleRefund, id)
}

func (r *repository) StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error) {
	rows, err := r.db.Query(ctx, `SELECT approval_status, COUNT(*), COALESCE(SUM(amount), 0) FROM refunds WHERE is_active GROUP BY approval_status`)
	if err != nil {
		return nil, err
	}
	return stats.ScanBuckets(rows)
}

type txRepository struct {
	tx        pgx.Tx
	approvals *shared.ApprovalRecorder
}

func (t *txRepository) LockCancellation(ctx context.Context, id int64) (cancellations.Cancellation, error) {
	return cancellations.SelectForUpdate(ctx, t.tx, id)
}

func (t *txRepository) CountActive(ctx context.Context, cancellationID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM refunds WHERE cancellation_id=$1 AND is_active`, cancellationID).Scan(&n)
	return n, err
}

func (t *txRepository) InsertInstallments(ctx context.Context, refunds []Refund) ([]int64, error) {
	batch := &pgx.Batch{}
	for _, rf := range refunds {
		batch.Queue(`INSERT INTO refunds (cancellation_id, installment_number, due_date, amount, payment_status, approval_status, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			rf.CancellationID, rf.InstallmentNumber, rf.DueDate, rf.Amount, string(rf.PaymentStatus), string(rf.ApprovalStatus), rf.Notes, rf.CreatedBy)
	}
	results := t.tx.SendBatch(ctx, batch)
	ids := make([]int64, 0, len(refunds))
	for range refunds {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			_ = results.Close()
			if shared.IsUniqueViolation(err) {
				return nil, shared.Wrap(shared.ErrScheduleAlreadyExists, "refund schedule already exists")
			}
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, results.Close()
}

func (t *txRepository) TransitionApproval(ctx context.Context, id int64, from, to shared.ApprovalStatus, rejectionReason string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE refunds SET approval_status=$3, rejection_reason=CASE WHEN $4 = '' THEN rejection_reason ELSE $4 END, updated_at=NOW()
WHERE id=$1 AND is_active AND approval_status=$2`, id, string(from), string(to), rejectionReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (t *txRepository) MarkPaid(ctx context.Context, p Payment) error {
	tag, err := t.tx.Exec(ctx, `UPDATE refunds SET payment_status=$2, paid_date=$3, payment_method=$4, bank_name=$5, cheque_number=$6,
notes=CASE WHEN $7 = '' THEN notes ELSE $7 END, updated_at=NOW()
WHERE id=$1 AND is_active AND approval_status=$8 AND payment_status=$9`,
		p.ID, string(PaymentPaid), p.PaidDate, string(p.Method), p.Instrument.BankName, p.Instrument.ChequeNumber, p.Notes,
		string(shared.StatusApproved), string(PaymentPending))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStaleState
	}
	return nil
}

func (t *txRepository) AppendHistory(ctx context.Context, log shared.ApprovalLog) error {
	log.Module = shared.ModuleRefund
	return t.approvals.Record(ctx, t.tx, log)
}

