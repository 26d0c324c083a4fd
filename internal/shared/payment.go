package shared

import "strings"

// PaymentMethod identifies how money moved.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentBank   PaymentMethod = "Bank"
	PaymentCheque PaymentMethod = "Cheque"
)

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentBank, PaymentCheque:
		return true
	}
	return false
}

// InstrumentDetails identifies the cheque used for a payment.
type InstrumentDetails struct {
	BankName     string `json:"bankName,omitempty"`
	ChequeNumber string `json:"chequeNumber,omitempty"`
}

// NormalizePayment validates method and returns the instrument details to
// persist. Details are required for cheques and dropped otherwise.
func NormalizePayment(method PaymentMethod, details InstrumentDetails) (InstrumentDetails, error) {
	if method == "" {
		return InstrumentDetails{}, Wrap(ErrMissingField, "payment method is required")
	}
	if !method.Valid() {
		return InstrumentDetails{}, Wrapf(ErrValidation, "unsupported payment method %q", method)
	}
	if method != PaymentCheque {
		return InstrumentDetails{}, nil
	}
	details.BankName = strings.TrimSpace(details.BankName)
	details.ChequeNumber = strings.TrimSpace(details.ChequeNumber)
	if details.BankName == "" || details.ChequeNumber == "" {
		return InstrumentDetails{}, Wrap(ErrMissingField, "bank name and cheque number are required for cheque payments")
	}
	return details, nil
}
