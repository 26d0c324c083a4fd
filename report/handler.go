package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/landbook/landbook/internal/cancellations"
	"github.com/landbook/landbook/internal/platform/httpx"
	"github.com/landbook/landbook/internal/refunds"
	"github.com/landbook/landbook/internal/shared"
)

// CancellationReader is implemented by *cancellations.Service.
type CancellationReader interface {
	Get(ctx context.Context, id int64) (cancellations.Cancellation, error)
}

// RefundReader is implemented by *refunds.Service.
type RefundReader interface {
	ListByCancellation(ctx context.Context, cancellationID int64) ([]refunds.Refund, error)
}

// Handler manages report endpoints.
type Handler struct {
	renderer      Renderer
	cancellations CancellationReader
	refunds       RefundReader
	logger        *slog.Logger
	now           func() time.Time
}

// NewHandler creates a report handler.
func NewHandler(renderer Renderer, c CancellationReader, rf RefundReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{renderer: renderer, cancellations: c, refunds: rf, logger: logger, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/refund-schedules/{cancellationID}", h.refundSchedule)
}

func (h *Handler) refundSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "cancellationID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.cancellations.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "load cancellation", err)
		return
	}
	installments, err := h.refunds.ListByCancellation(r.Context(), id)
	if err != nil {
		h.fail(w, "load refunds", err)
		return
	}
	html, err := BuildRefundStatement(c, installments, h.now()).Render()
	if err != nil {
		h.fail(w, "render refund statement", err)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(html)
		return
	}
	pdf, err := h.renderer.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render refund statement pdf", slog.Int64("cancellation_id", id), slog.Any("error", err))
		httpx.Fail(w, http.StatusBadGateway, string(shared.CodeInternal), "pdf renderer unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=refund-schedule-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
