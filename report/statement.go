package report

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/landbook/landbook/internal/cancellations"
	"github.com/landbook/landbook/internal/refunds"
	"github.com/landbook/landbook/internal/shared"
)

//go:embed templates/*.html
var templateFS embed.FS

var statementTemplate = template.Must(template.New("refund_statement.html").Funcs(template.FuncMap{
	"money": formatMoney,
	"date": func(t time.Time) string {
		return t.Format("02 Jan 2006")
	},
	"optdate": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("02 Jan 2006")
	},
}).ParseFS(templateFS, "templates/refund_statement.html"))

var printer = message.NewPrinter(language.English)

func formatMoney(d decimal.Decimal) string {
	return printer.Sprintf("%.2f", d.InexactFloat64())
}

// RefundStatement is the view model of a cancellation's refund schedule.
type RefundStatement struct {
	Cancellation cancellations.Cancellation
	Installments []refunds.Refund
	Scheduled    decimal.Decimal
	Paid         decimal.Decimal
	Outstanding  decimal.Decimal
	GeneratedAt  time.Time
}

// BuildRefundStatement totals the installments of c.
func BuildRefundStatement(c cancellations.Cancellation, installments []refunds.Refund, at time.Time) RefundStatement {
	st := RefundStatement{
		Cancellation: c,
		Installments: installments,
		Scheduled:    decimal.Zero,
		Paid:         decimal.Zero,
		GeneratedAt:  at,
	}
	for _, rf := range installments {
		if rf.ApprovalStatus == shared.StatusRejected {
			continue
		}
		st.Scheduled = st.Scheduled.Add(rf.Amount)
		if rf.PaymentStatus == refunds.PaymentPaid {
			st.Paid = st.Paid.Add(rf.Amount)
		}
	}
	st.Outstanding = st.Scheduled.Sub(st.Paid)
	return st
}

// Render writes the statement as a standalone HTML document.
func (st RefundStatement) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := statementTemplate.Execute(&buf, st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
