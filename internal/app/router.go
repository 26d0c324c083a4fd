package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/landbook/landbook/internal/accounts"
	"github.com/landbook/landbook/internal/audit"
	"github.com/landbook/landbook/internal/auth"
	"github.com/landbook/landbook/internal/cancellations"
	"github.com/landbook/landbook/internal/cheques"
	"github.com/landbook/landbook/internal/expenses"
	"github.com/landbook/landbook/internal/ledger"
	"github.com/landbook/landbook/internal/observability"
	"github.com/landbook/landbook/internal/payroll"
	"github.com/landbook/landbook/internal/refunds"
	"github.com/landbook/landbook/internal/shared"
	"github.com/landbook/landbook/internal/stats"
	"github.com/landbook/landbook/jobs"
	"github.com/landbook/landbook/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Verifier *auth.Verifier
	Metrics  *observability.Metrics

	ExpensesHandler      *expenses.Handler
	LedgerHandler        *ledger.Handler
	CancellationsHandler *cancellations.Handler
	RefundsHandler       *refunds.Handler
	ChequesHandler       *cheques.Handler
	PayrollHandler       *payroll.Handler
	AccountsHandler      *accounts.Handler
	StatsHandler         *stats.Handler
	AuditHandler         *audit.Handler
	ReportHandler        *report.Handler
	JobHandler           *jobs.Handler
}

// NewRouter constructs the chi.Router with the landbook defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(params.Verifier))
		r.Use(auth.RequireRoles(shared.ApproverRoles()...))
		if params.ExpensesHandler != nil {
			params.ExpensesHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.CancellationsHandler != nil {
			params.CancellationsHandler.MountRoutes(r)
		}
		if params.RefundsHandler != nil {
			params.RefundsHandler.MountRoutes(r)
		}
		if params.ChequesHandler != nil {
			params.ChequesHandler.MountRoutes(r)
		}
		if params.PayrollHandler != nil {
			params.PayrollHandler.MountRoutes(r)
		}
		if params.AccountsHandler != nil {
			params.AccountsHandler.MountRoutes(r)
		}
		if params.StatsHandler != nil {
			params.StatsHandler.MountRoutes(r)
		}
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(r)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
	})

	return r
}
