package refunds

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/landbook/landbook/internal/platform/httpx"
	"github.com/landbook/landbook/internal/shared"
)

// Handler exposes refund endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers refund routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/refunds", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.createSchedule)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Post("/{id}/submit", h.submit)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
		r.Post("/{id}/mark-paid", h.markPaid)
	})
	r.Get("/cancellations/{id}/refunds", h.listByCancellation)
}

type scheduleRequest struct {
	CancellationID       int64        `json:"cancellationId" validate:"required,gt=0"`
	NumberOfInstallments int          `json:"numberOfInstallments" validate:"required,gt=0,lte=360"`
	StartDate            *shared.Date `json:"startDate"`
	Notes                string       `json:"notes" validate:"max=1000"`
}

type remarksRequest struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

type markPaidRequest struct {
	PaymentMethod     shared.PaymentMethod     `json:"paymentMethod" validate:"required,oneof=Cash Bank Cheque"`
	PaidDate          *shared.Date             `json:"paidDate"`
	InstrumentDetails shared.InstrumentDetails `json:"instrumentDetails"`
	Notes             string                   `json:"notes" validate:"max=1000"`
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cancellationID, err := httpx.QueryInt64(r, "cancellationId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := httpx.QueryDate(r, "dueFrom")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(r, "dueTo")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := httpx.PageFromQuery(r)
	items, total, err := h.service.List(r.Context(), ListFilter{
		CancellationID: cancellationID,
		ApprovalStatus: shared.ApprovalStatus(q.Get("approvalStatus")),
		PaymentStatus:  PaymentStatus(q.Get("paymentStatus")),
		DueFrom:        from,
		DueTo:          to,
		Page:           page,
	})
	if err != nil {
		h.fail(w, "list refunds", err)
		return
	}
	httpx.OK(w, shared.NewPage(items, page, total))
}

func (h *Handler) createSchedule(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req scheduleRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.CreateSchedule(r.Context(), p, ScheduleInput{
		CancellationID:       req.CancellationID,
		NumberOfInstallments: req.NumberOfInstallments,
		StartDate:            req.StartDate.Ptr(),
		Notes:                req.Notes,
	})
	if err != nil {
		h.fail(w, "create refund schedule", err)
		return
	}
	httpx.Created(w, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rf, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get refund", err)
		return
	}
	httpx.OK(w, rf)
}

func (h *Handler) listByCancellation(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListByCancellation(r.Context(), id)
	if err != nil {
		h.fail(w, "list cancellation refunds", err)
		return
	}
	httpx.OK(w, items)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
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
	rf, err := h.service.Submit(r.Context(), p, id)
	if err != nil {
		h.fail(w, "submit refund", err)
		return
	}
	httpx.OK(w, rf)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve refund", h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject refund", h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, msg string, fn func(context.Context, shared.Principal, int64, string) (Refund, error)) {
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
	rf, err := fn(r.Context(), p, id, req.Remarks)
	if err != nil {
		h.fail(w, msg, err)
		return
	}
	httpx.OK(w, rf)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
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
	var req markPaidRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rf, err := h.service.MarkPaid(r.Context(), p, id, PaymentInput{
		PaymentMethod: req.PaymentMethod,
		PaidDate:      req.PaidDate.Ptr(),
		Instrument:    req.InstrumentDetails,
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(w, "mark refund paid", err)
		return
	}
	httpx.OK(w, rf)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, "refund stats", err)
		return
	}
	httpx.OK(w, sum)
}
