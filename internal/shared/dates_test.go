package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	start := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), AddMonths(start, 1))
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), AddMonths(start, 2))
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), AddMonths(start, 13))
}

func TestAddMonthsRegularDay(t *testing.T) {
	start := time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), AddMonths(start, 2))
}

func TestNormalizePayment(t *testing.T) {
	details, err := NormalizePayment(PaymentBank, InstrumentDetails{BankName: "HBL"})
	assert.NoError(t, err)
	assert.Equal(t, InstrumentDetails{}, details)

	_, err = NormalizePayment(PaymentCheque, InstrumentDetails{BankName: "HBL"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = NormalizePayment("", InstrumentDetails{})
	assert.ErrorIs(t, err, ErrMissingField)
}
