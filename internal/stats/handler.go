package stats

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/landbook/landbook/internal/platform/httpx"
)

// Handler serves the dashboard endpoint.
type Handler struct {
	logger    *slog.Logger
	dashboard *Dashboard
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, dashboard *Dashboard) *Handler {
	return &Handler{logger: logger, dashboard: dashboard}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboardSummary)
}

func (h *Handler) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.Load(r.Context())
	if err != nil {
		h.logger.Error("load dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, data)
}
