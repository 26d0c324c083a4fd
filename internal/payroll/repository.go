package payroll

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
	Insert(ctx context.Context, c EmployeeCost) (int64, error)
	Update(ctx context.Context, c EmployeeCost) error
	SoftDelete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (EmployeeCost, error)
	// FindPeriod returns the active sheet of employee for month/year.
	FindPeriod(ctx context.Context, employeeID int64, month, year int) (EmployeeCost, error)
	List(ctx context.Context, filter ListFilter) ([]EmployeeCost, int, error)
	StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectCost = `SELECT id, employee_id, month, year, salary, commission, fuel, entertainment, bonus, overtime,
other_allowances, advances, deductions, net_pay, payment_date, payment_method, notes, created_by, is_active, created_at, updated_at
FROM employee_costs`

func scanCost(row pgx.Row) (EmployeeCost, error) {
	var c EmployeeCost
	var method string
	err := row.Scan(&c.ID, &c.EmployeeID, &c.Month, &c.Year, &c.Salary, &c.Commission, &c.Fuel, &c.Entertainment, &c.Bonus, &c.Overtime,
		&c.OtherAllowances, &c.Advances, &c.Deductions, &c.NetPay, &c.PaymentDate, &method, &c.Notes, &c.CreatedBy, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return EmployeeCost{}, err
	}
	c.PaymentMethod = shared.PaymentMethod(method)
	return c, nil
}

func duplicate(err error, c EmployeeCost) error {
	if shared.IsUniqueViolation(err) {
		return shared.Wrapf(shared.ErrDuplicateEntry, "employee %d already has a cost sheet for %02d/%d", c.EmployeeID, c.Month, c.Year)
	}
	return err
}

func (r *repository) Insert(ctx context.Context, c EmployeeCost) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO employee_costs (employee_id, month, year, salary, commission, fuel, entertainment, bonus, overtime,
other_allowances, advances, deductions, net_pay, payment_date, payment_method, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17) RETURNING id`,
		c.EmployeeID, c.Month, c.Year, c.Salary, c.Commission, c.Fuel, c.Entertainment, c.Bonus, c.Overtime,
		c.OtherAllowances, c.Advances, c.Deductions, c.NetPay, c.PaymentDate, string(c.PaymentMethod), c.Notes, c.CreatedBy).Scan(&id)
	if err != nil {
		return 0, duplicate(err, c)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, c EmployeeCost) error {
	tag, err := r.db.Exec(ctx, `UPDATE employee_costs SET employee_id=$2, month=$3, year=$4, salary=$5, commission=$6, fuel=$7,
entertainment=$8, bonus=$9, overtime=$10, other_allowances=$11, advances=$12, deductions=$13, net_pay=$14, payment_date=$15,
payment_method=$16, notes=$17, updated_at=NOW() WHERE id=$1 AND is_active`,
		c.ID, c.EmployeeID, c.Month, c.Year, c.Salary, c.Commission, c.Fuel,
		c.Entertainment, c.Bonus, c.Overtime, c.OtherAllowances, c.Advances, c.Deductions, c.NetPay, c.PaymentDate,
		string(c.PaymentMethod), c.Notes)
	if err != nil {
		return duplicate(err, c)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE employee_costs SET is_active=FALSE, updated_at=NOW() WHERE id=$1 AND is_active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (EmployeeCost, error) {
	c, err := scanCost(r.db.QueryRow(ctx, selectCost+` WHERE id=$1 AND is_active`, id))
	if err != nil {
		return EmployeeCost{}, shared.TranslateNoRows(err)
	}
	return c, nil
}

func (r *repository) FindPeriod(ctx context.Context, employeeID int64, month, year int) (EmployeeCost, error) {
	c, err := scanCost(r.db.QueryRow(ctx, selectCost+` WHERE employee_id=$1 AND month=$2 AND year=$3 AND is_active`, employeeID, month, year))
	if err != nil {
		return EmployeeCost{}, shared.TranslateNoRows(err)
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]EmployeeCost, int, error) {
	where := []string{"is_active"}
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.EmployeeID > 0 {
		add("employee_id = $%d", filter.EmployeeID)
	}
	if filter.Month > 0 {
		add("month = $%d", filter.Month)
	}
	if filter.Year > 0 {
		add("year = $%d", filter.Year)
	}
	cond := strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM employee_costs WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`%s WHERE %s ORDER BY year DESC, month DESC, employee_id LIMIT $%d OFFSET $%d`, selectCost, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]EmployeeCost, 0)
	for rows.Next() {
		c, err := scanCost(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repository) StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error) {
	rows, err := r.db.Query(ctx, `SELECT CASE WHEN payment_date IS NULL THEN 'Unpaid' ELSE 'Paid' END AS status, COUNT(*), COALESCE(SUM(net_pay), 0)
FROM employee_costs WHERE is_active GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	return stats.ScanBuckets(rows)
}
