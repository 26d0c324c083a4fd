// Package accounts keeps the register of bank and cash accounts.
package accounts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/shared"
)

// Entity is the name used for audit.
const Entity = "account"

// Kind separates bank accounts from cash boxes.
type Kind string

const (
	KindBank Kind = "Bank"
	KindCash Kind = "Cash"
)

// Valid reports whether k is known.
func (k Kind) Valid() bool {
	return k == KindBank || k == KindCash
}

// Account is a bank account or cash box.
type Account struct {
	ID             int64           `json:"id"`
	Kind           Kind            `json:"kind"`
	Name           string          `json:"name"`
	BankName       string          `json:"bankName,omitempty"`
	AccountTitle   string          `json:"accountTitle,omitempty"`
	AccountNumber  string          `json:"accountNumber,omitempty"`
	Branch         string          `json:"branch,omitempty"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	IsActive       bool            `json:"isActive"`
	CreatedBy      int64           `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Input carries the editable fields of an account.
type Input struct {
	Kind           Kind
	Name           string
	BankName       string
	AccountTitle   string
	AccountNumber  string
	Branch         string
	OpeningBalance decimal.Decimal
}

// ListFilter narrows listings.
type ListFilter struct {
	Kind            Kind
	IncludeInactive bool
	Page            shared.PageRequest
}
