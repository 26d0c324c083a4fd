package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error)
	All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectTimeline = `SELECT id, occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs`

func (r *repository) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	cond, args := whereClause(filters)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY occurred_at DESC, id DESC LIMIT $%d OFFSET $%d`, selectTimeline, cond, len(args)-1, len(args))
	return r.query(ctx, query, args...)
}

func (r *repository) All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	cond, args := whereClause(filters)
	return r.query(ctx, fmt.Sprintf(`%s WHERE %s ORDER BY occurred_at DESC, id DESC`, selectTimeline, cond), args...)
}

func (r *repository) query(ctx context.Context, sql string, args ...any) ([]TimelineRow, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out  TimelineRow
			meta []byte
		)
		if err := row.Scan(&out.ID, &out.At, &out.ActorID, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return TimelineRow{}, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		return out, nil
	})
}

func whereClause(f TimelineFilters) (string, []any) {
	conds := []string{"TRUE"}
	var args []any
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if !f.From.IsZero() {
		add("occurred_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("occurred_at < $%d", f.To)
	}
	if f.ActorID > 0 {
		add("actor_id = $%d", f.ActorID)
	}
	if f.Entity != "" {
		add("entity = $%d", f.Entity)
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.Action != "" {
		add("action = $%d", strings.ToUpper(f.Action))
	}
	return strings.Join(conds, " AND "), args
}
