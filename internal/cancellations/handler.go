package cancellations

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/platform/httpx"
	"github.com/landbook/landbook/internal/shared"
)

// Handler exposes cancellation endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers cancellation routes. Routes nested under a
// cancellation id that belong to other packages are mounted by them.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/cancellations", h.list)
	r.Post("/cancellations", h.create)
	r.Get("/cancellations/stats", h.stats)
	r.Get("/cancellations/{id}", h.get)
	r.Post("/cancellations/{id}/approve", h.approve)
	r.Post("/cancellations/{id}/reject", h.reject)
}

type createRequest struct {
	SaleID           int64           `json:"saleId" validate:"required,gt=0"`
	Reason           string          `json:"reason" validate:"required,max=1000"`
	RefundableAmount decimal.Decimal `json:"refundableAmount"`
}

type remarksRequest struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	saleID, err := httpx.QueryInt64(r, "saleId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := httpx.PageFromQuery(r)
	items, total, err := h.service.List(r.Context(), ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		SaleID: saleID,
		Page:   page,
	})
	if err != nil {
		h.fail(w, "list cancellations", err)
		return
	}
	httpx.OK(w, shared.NewPage(items, page, total))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Create(r.Context(), p, CreateInput{
		SaleID:           req.SaleID,
		Reason:           req.Reason,
		RefundableAmount: req.RefundableAmount,
	})
	if err != nil {
		h.fail(w, "create cancellation", err)
		return
	}
	httpx.Created(w, c)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get cancellation", err)
		return
	}
	httpx.OK(w, c)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve cancellation", h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject cancellation", h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, msg string, fn func(context.Context, shared.Principal, int64, string) (Cancellation, error)) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req remarksRequest
	if err := httpx.BindOptional(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := fn(r.Context(), p, id, req.Remarks)
	if err != nil {
		h.fail(w, msg, err)
		return
	}
	httpx.OK(w, c)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, "cancellation stats", err)
		return
	}
	httpx.OK(w, sum)
}
