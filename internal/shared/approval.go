package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApprovalAction enumerates approval log actions.
type ApprovalAction string

const (
	// ApprovalSubmit marks a submit action.
	ApprovalSubmit ApprovalAction = "Submitted"
	// ApprovalApprove marks an approve action.
	ApprovalApprove ApprovalAction = "Approved"
	// ApprovalReject marks a reject action.
	ApprovalReject ApprovalAction = "Rejected"
	// ApprovalPaid marks a payment action on a refund installment.
	ApprovalPaid ApprovalAction = "Paid"
)

// Approval modules stored in approval_logs.module.
const (
	ModuleExpense      = "expense"
	ModuleRefund       = "refund"
	ModuleCancellation = "cancellation"
)

// ApprovalLog represents a single approval history entry.
type ApprovalLog struct {
	ID         int64          `json:"id"`
	Module     string         `json:"-"`
	RefID      int64          `json:"-"`
	ActorID    int64          `json:"approverId"`
	ActorRole  Role           `json:"approverRole"`
	Action     ApprovalAction `json:"action"`
	FromStatus string         `json:"fromStatus"`
	ToStatus   string         `json:"toStatus"`
	Remarks    string         `json:"remarks,omitempty"`
	At         time.Time      `json:"timestamp"`
}

// ApprovalRecorder persists approval history.
type ApprovalRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewApprovalRecorder constructs ApprovalRecorder.
func NewApprovalRecorder(pool *pgxpool.Pool, logger *slog.Logger) *ApprovalRecorder {
	return &ApprovalRecorder{pool: pool, logger: logger}
}

func validateApprovalLog(log ApprovalLog) error {
	if log.Module == "" {
		return errors.New("approval module required")
	}
	if log.ActorID == 0 {
		return errors.New("approval actor required")
	}
	if log.RefID == 0 {
		return errors.New("approval ref id required")
	}
	if log.Action == "" {
		return errors.New("approval action required")
	}
	return nil
}

// Record writes an approval entry using the given executor, normally the
// transaction that performed the status change.
func (r *ApprovalRecorder) Record(ctx context.Context, q DBTX, log ApprovalLog) error {
	if r == nil {
		return errors.New("approval recorder not initialised")
	}
	if err := validateApprovalLog(log); err != nil {
		return err
	}
	if q == nil {
		q = r.pool
	}
	var at any
	if !log.At.IsZero() {
		at = log.At
	}
	_, err := q.Exec(ctx, `INSERT INTO approval_logs (module, ref_id, actor_id, actor_role, action, from_status, to_status, remarks, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))`,
		log.Module, log.RefID, log.ActorID, string(log.ActorRole), string(log.Action), log.FromStatus, log.ToStatus, log.Remarks, at)
	if err != nil {
		r.logger.Error("record approval", slog.String("module", log.Module), slog.Int64("ref_id", log.RefID), slog.Any("error", err))
		return err
	}
	return nil
}

// List returns approvals for module/ref in chronological order.
func (r *ApprovalRecorder) List(ctx context.Context, module string, ref int64) ([]ApprovalLog, error) {
	if r == nil {
		return nil, errors.New("approval recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, module, ref_id, actor_id, actor_role, action, from_status, to_status, remarks, at
FROM approval_logs WHERE module=$1 AND ref_id=$2 ORDER BY at ASC, id ASC`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := make([]ApprovalLog, 0)
	for rows.Next() {
		var l ApprovalLog
		var role, action string
		if err := rows.Scan(&l.ID, &l.Module, &l.RefID, &l.ActorID, &role, &action, &l.FromStatus, &l.ToStatus, &l.Remarks, &l.At); err != nil {
			return nil, err
		}
		l.ActorRole = Role(role)
		l.Action = ApprovalAction(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
