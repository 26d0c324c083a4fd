// Package notify turns domain events into SMS alerts delivered through a
// background queue.
package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/landbook/landbook/internal/events"
)

// Formatter renders alert text with grouped amounts.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter builds a formatter for tag. An empty currency defaults to PKR.
func NewFormatter(tag language.Tag, currency string) *Formatter {
	if currency == "" {
		currency = "PKR"
	}
	return &Formatter{printer: message.NewPrinter(tag), currency: currency}
}

// Amount renders d with thousands separators and no trailing zero cents.
func (f *Formatter) Amount(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return f.printer.Sprintf("%s %d", f.currency, d.IntPart())
	}
	return f.printer.Sprintf("%s %.2f", f.currency, d.InexactFloat64())
}

// Message returns the alert text for evt and whether evt warrants an alert.
func (f *Formatter) Message(evt events.Event) (string, bool) {
	amount := f.Amount(evt.Amount)
	switch evt.Type {
	case events.ChequeBounced:
		msg := fmt.Sprintf("Cheque %s (%s) for %s bounced", evt.Data["chequeNumber"], evt.Data["bankName"], amount)
		if reason := evt.Data["reason"]; reason != "" {
			msg += ": " + reason
		}
		return msg + ".", true
	case events.ExpenseApproved:
		return fmt.Sprintf("Expense #%d for %s approved and posted to ledger.", evt.EntityID, amount), true
	case events.ExpenseRejected:
		return fmt.Sprintf("Expense #%d for %s was rejected.", evt.EntityID, amount), true
	case events.RefundPaid:
		method := strings.ToLower(evt.Data["paymentMethod"])
		if method == "" {
			method = "payment"
		}
		return fmt.Sprintf("Refund installment %s of cancellation #%s paid: %s by %s.",
			evt.Data["installment"], evt.Data["cancellationId"], amount, method), true
	}
	return "", false
}
