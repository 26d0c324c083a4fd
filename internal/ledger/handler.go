package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/landbook/landbook/internal/platform/httpx"
	"github.com/landbook/landbook/internal/shared"
)

// Handler serves ledger read endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledger", h.list)
	r.Get("/ledger/trial-balance", h.trialBalance)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := httpx.PageFromQuery(r)
	filter := ListFilter{
		AccountName:    r.URL.Query().Get("account"),
		ReferenceModel: r.URL.Query().Get("referenceModel"),
		From:           from,
		To:             to,
		Limit:          page.Limit(),
		Offset:         page.Offset(),
	}
	entries, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, shared.NewPage(entries, page, total))
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.service.TrialBalance(r.Context())
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, tb)
}
