package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
)

type memoryCostRepo struct {
	items  map[int64]EmployeeCost
	nextID int64
}

func newMemoryCostRepo() *memoryCostRepo {
	return &memoryCostRepo{items: map[int64]EmployeeCost{}, nextID: 1}
}

func (r *memoryCostRepo) Insert(ctx context.Context, c EmployeeCost) (int64, error) {
	c.ID = r.nextID
	c.IsActive = true
	r.nextID++
	r.items[c.ID] = c
	return c.ID, nil
}

func (r *memoryCostRepo) Update(ctx context.Context, c EmployeeCost) error {
	current, ok := r.items[c.ID]
	if !ok || !current.IsActive {
		return shared.ErrNotFound
	}
	c.IsActive = true
	c.CreatedBy = current.CreatedBy
	r.items[c.ID] = c
	return nil
}

func (r *memoryCostRepo) SoftDelete(ctx context.Context, id int64) error {
	c, ok := r.items[id]
	if !ok || !c.IsActive {
		return shared.ErrNotFound
	}
	c.IsActive = false
	r.items[id] = c
	return nil
}

func (r *memoryCostRepo) Get(ctx context.Context, id int64) (EmployeeCost, error) {
	c, ok := r.items[id]
	if !ok || !c.IsActive {
		return EmployeeCost{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryCostRepo) FindPeriod(ctx context.Context, employeeID int64, month, year int) (EmployeeCost, error) {
	for _, c := range r.items {
		if c.IsActive && c.EmployeeID == employeeID && c.Month == month && c.Year == year {
			return c, nil
		}
	}
	return EmployeeCost{}, shared.ErrNotFound
}

func (r *memoryCostRepo) List(ctx context.Context, filter ListFilter) ([]EmployeeCost, int, error) {
	out := make([]EmployeeCost, 0)
	for id := int64(1); id < r.nextID; id++ {
		if c, ok := r.items[id]; ok && c.IsActive {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (r *memoryCostRepo) StatusBuckets(ctx context.Context) ([]stats.StatusBucket, error) {
	paid := stats.StatusBucket{Status: StatusPaid}
	unpaid := stats.StatusBucket{Status: StatusUnpaid}
	for _, c := range r.items {
		if !c.IsActive {
			continue
		}
		b := &unpaid
		if c.PaymentDate != nil {
			b = &paid
		}
		b.Count++
		b.Amount = b.Amount.Add(c.NetPay)
	}
	return []stats.StatusBucket{paid, unpaid}, nil
}

var hr = shared.Principal{UserID: 8, Role: shared.RoleAdmin}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func sampleInput() Input {
	return Input{
		EmployeeID: 42,
		Month:      5,
		Year:       2024,
		Components: Components{
			Salary:          d(80000),
			Commission:      d(12000),
			Fuel:            d(5000),
			Entertainment:   d(2000),
			Bonus:           d(3000),
			Overtime:        d(1500),
			OtherAllowances: d(500),
			Advances:        d(10000),
			Deductions:      d(4000),
		},
	}
}

func TestNetPayIsComputed(t *testing.T) {
	assert.Equal(t, "90000", sampleInput().Components.Net().String())

	svc := NewService(newMemoryCostRepo(), nil, nil)
	c, err := svc.Create(context.Background(), hr, sampleInput())
	require.NoError(t, err)
	assert.True(t, d(90000).Equal(c.NetPay))
}

func TestCreateValidatesPeriodAndComponents(t *testing.T) {
	svc := NewService(newMemoryCostRepo(), nil, nil)
	ctx := context.Background()

	in := sampleInput()
	in.Month = 13
	_, err := svc.Create(ctx, hr, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = sampleInput()
	in.Year = 1999
	_, err = svc.Create(ctx, hr, in)
	require.ErrorIs(t, err, shared.ErrValidation)

	in = sampleInput()
	in.Components.Fuel = d(-1)
	_, err = svc.Create(ctx, hr, in)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	in = sampleInput()
	in.EmployeeID = 0
	_, err = svc.Create(ctx, hr, in)
	require.ErrorIs(t, err, shared.ErrMissingField)
}

func TestOneSheetPerEmployeePeriod(t *testing.T) {
	repo := newMemoryCostRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, hr, sampleInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, hr, sampleInput())
	require.ErrorIs(t, err, shared.ErrDuplicateEntry)

	next := sampleInput()
	next.Month = 6
	second, err := svc.Create(ctx, hr, next)
	require.NoError(t, err)

	_, err = svc.Update(ctx, hr, second.ID, sampleInput())
	require.ErrorIs(t, err, shared.ErrDuplicateEntry)

	same := sampleInput()
	same.Components.Bonus = d(0)
	updated, err := svc.Update(ctx, hr, first.ID, same)
	require.NoError(t, err)
	assert.True(t, d(87000).Equal(updated.NetPay))

	require.NoError(t, svc.Delete(ctx, hr, first.ID))
	_, err = svc.Create(ctx, hr, sampleInput())
	require.NoError(t, err)
}

func TestStatsSplitsPaidAndUnpaid(t *testing.T) {
	svc := NewService(newMemoryCostRepo(), nil, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, hr, sampleInput())
	require.NoError(t, err)
	paid := sampleInput()
	paid.EmployeeID = 43
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	paid.PaymentDate = &at
	paid.PaymentMethod = shared.PaymentBank
	_, err = svc.Create(ctx, hr, paid)
	require.NoError(t, err)

	sum, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, sum.TotalCount)
	assert.True(t, d(180000).Equal(sum.TotalAmount))
	require.Len(t, sum.ByStatus, 2)
	assert.Equal(t, StatusPaid, sum.ByStatus[0].Status)
	assert.EqualValues(t, 1, sum.ByStatus[0].Count)
}
