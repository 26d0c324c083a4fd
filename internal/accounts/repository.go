package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/landbook/landbook/internal/shared"
)

// Repository describes persistence used by Service.
type Repository interface {
	Insert(ctx context.Context, a Account) (int64, error)
	Update(ctx context.Context, a Account) error
	Deactivate(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Account, error)
	List(ctx context.Context, filter ListFilter) ([]Account, int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectAccount = `SELECT id, kind, name, bank_name, account_title, account_number, branch, opening_balance, is_active,
created_by, created_at, updated_at FROM accounts`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var kind string
	err := row.Scan(&a.ID, &kind, &a.Name, &a.BankName, &a.AccountTitle, &a.AccountNumber, &a.Branch, &a.OpeningBalance, &a.IsActive,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	a.Kind = Kind(kind)
	return a, nil
}

func duplicate(err error, a Account) error {
	if shared.IsUniqueViolation(err) {
		return shared.Wrapf(shared.ErrDuplicateEntry, "account %s at %s already exists", a.AccountNumber, a.BankName)
	}
	return err
}

func (r *repository) Insert(ctx context.Context, a Account) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (kind, name, bank_name, account_title, account_number, branch, opening_balance, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		string(a.Kind), a.Name, a.BankName, a.AccountTitle, a.AccountNumber, a.Branch, a.OpeningBalance, a.CreatedBy).Scan(&id)
	if err != nil {
		return 0, duplicate(err, a)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, a Account) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET name=$2, bank_name=$3, account_title=$4, account_number=$5, branch=$6,
opening_balance=$7, updated_at=NOW() WHERE id=$1 AND is_active`,
		a.ID, a.Name, a.BankName, a.AccountTitle, a.AccountNumber, a.Branch, a.OpeningBalance)
	if err != nil {
		return duplicate(err, a)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET is_active=FALSE, updated_at=NOW() WHERE id=$1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, selectAccount+` WHERE id=$1`, id))
	if err != nil {
		return Account{}, shared.TranslateNoRows(err)
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Account, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if !filter.IncludeInactive {
		where = append(where, "is_active")
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`%s WHERE %s ORDER BY kind, name LIMIT $%d OFFSET $%d`, selectAccount, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
