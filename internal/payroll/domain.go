// Package payroll records monthly employee cost sheets.
package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/shared"
)

// Entity is the name used for audit and stats.
const Entity = "employee_cost"

// Stats buckets.
const (
	StatusPaid   = "Paid"
	StatusUnpaid = "Unpaid"
)

// Components are the money fields of a cost sheet.
type Components struct {
	Salary          decimal.Decimal `json:"salary"`
	Commission      decimal.Decimal `json:"commission"`
	Fuel            decimal.Decimal `json:"fuel"`
	Entertainment   decimal.Decimal `json:"entertainment"`
	Bonus           decimal.Decimal `json:"bonus"`
	Overtime        decimal.Decimal `json:"overtime"`
	OtherAllowances decimal.Decimal `json:"otherAllowances"`
	Advances        decimal.Decimal `json:"advances"`
	Deductions      decimal.Decimal `json:"deductions"`
}

func (c Components) earnings() []decimal.Decimal {
	return []decimal.Decimal{c.Salary, c.Commission, c.Fuel, c.Entertainment, c.Bonus, c.Overtime, c.OtherAllowances}
}

func (c Components) withholdings() []decimal.Decimal {
	return []decimal.Decimal{c.Advances, c.Deductions}
}

// Net is total earnings less advances and deductions.
func (c Components) Net() decimal.Decimal {
	net := decimal.Zero
	for _, v := range c.earnings() {
		net = net.Add(v)
	}
	for _, v := range c.withholdings() {
		net = net.Sub(v)
	}
	return net
}

// EmployeeCost is one employee's cost sheet for a month.
type EmployeeCost struct {
	ID         int64 `json:"id"`
	EmployeeID int64 `json:"employeeId"`
	Month      int   `json:"month"`
	Year       int   `json:"year"`
	Components
	NetPay        decimal.Decimal      `json:"netPay"`
	PaymentDate   *time.Time           `json:"paymentDate,omitempty"`
	PaymentMethod shared.PaymentMethod `json:"paymentMethod,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	CreatedBy     int64                `json:"createdBy"`
	IsActive      bool                 `json:"isActive"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// Input carries the editable fields of a cost sheet.
type Input struct {
	EmployeeID    int64
	Month         int
	Year          int
	Components    Components
	PaymentDate   *time.Time
	PaymentMethod shared.PaymentMethod
	Notes         string
}

// ListFilter narrows listings.
type ListFilter struct {
	EmployeeID int64
	Month      int
	Year       int
	Page       shared.PageRequest
}
