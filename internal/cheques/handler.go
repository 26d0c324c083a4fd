package cheques

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/platform/httpx"
	"github.com/landbook/landbook/internal/shared"
)

// Handler exposes cheque endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers cheque routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/cheques", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/due", h.due)
		r.Get("/upcoming", h.upcoming)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/clear", h.clear)
		r.Post("/{id}/bounce", h.bounce)
		r.Post("/{id}/cancel", h.cancel)
	})
}

type chequeRequest struct {
	ChequeNumber string          `json:"chequeNumber" validate:"required,max=64"`
	BankName     string          `json:"bankName" validate:"required,max=120"`
	Branch       string          `json:"branch" validate:"max=120"`
	ChequeType   Type            `json:"chequeType" validate:"omitempty,oneof=PDC Current"`
	IssueDate    *shared.Date    `json:"issueDate"`
	DueDate      *shared.Date    `json:"dueDate" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	ClientID     *int64          `json:"clientId" validate:"omitempty,gt=0"`
	SaleID       *int64          `json:"saleId" validate:"omitempty,gt=0"`
	ReceiptID    *int64          `json:"receiptId" validate:"omitempty,gt=0"`
	RefundID     *int64          `json:"refundId" validate:"omitempty,gt=0"`
	Notes        string          `json:"notes" validate:"max=1000"`
}

func (req chequeRequest) input() Input {
	return Input{
		ChequeNumber: req.ChequeNumber,
		BankName:     req.BankName,
		Branch:       req.Branch,
		Type:         req.ChequeType,
		IssueDate:    req.IssueDate.Ptr(),
		DueDate:      req.DueDate.Ptr(),
		Amount:       req.Amount,
		ClientID:     req.ClientID,
		SaleID:       req.SaleID,
		ReceiptID:    req.ReceiptID,
		RefundID:     req.RefundID,
		Notes:        req.Notes,
	}
}

type settleRequest struct {
	Reason string       `json:"reason" validate:"max=1000"`
	Date   *shared.Date `json:"date"`
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
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
	saleID, err := httpx.QueryInt64(r, "saleId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := httpx.PageFromQuery(r)
	items, total, err := h.service.List(r.Context(), ListFilter{
		Status:   Status(q.Get("status")),
		Type:     Type(q.Get("chequeType")),
		BankName: q.Get("bankName"),
		DueFrom:  from,
		DueTo:    to,
		SaleID:   saleID,
		Page:     page,
	})
	if err != nil {
		h.fail(w, "list cheques", err)
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
	var req chequeRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Create(r.Context(), p, req.input())
	if err != nil {
		h.fail(w, "create cheque", err)
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
		h.fail(w, "get cheque", err)
		return
	}
	httpx.OK(w, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
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
	var req chequeRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Update(r.Context(), p, id, req.input())
	if err != nil {
		h.fail(w, "update cheque", err)
		return
	}
	httpx.OK(w, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.Delete(r.Context(), p, id); err != nil {
		h.fail(w, "delete cheque", err)
		return
	}
	httpx.OK(w, map[string]int64{"id": id})
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) (shared.Principal, int64, settleRequest, bool) {
	var req settleRequest
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, err)
		return p, 0, req, false
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return p, 0, req, false
	}
	if err := httpx.BindOptional(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return p, 0, req, false
	}
	return p, id, req, true
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	p, id, req, ok := h.settle(w, r)
	if !ok {
		return
	}
	c, err := h.service.MarkCleared(r.Context(), p, id, req.Date.Ptr())
	if err != nil {
		h.fail(w, "clear cheque", err)
		return
	}
	httpx.OK(w, c)
}

func (h *Handler) bounce(w http.ResponseWriter, r *http.Request) {
	p, id, req, ok := h.settle(w, r)
	if !ok {
		return
	}
	c, err := h.service.MarkBounced(r.Context(), p, id, req.Reason, req.Date.Ptr())
	if err != nil {
		h.fail(w, "bounce cheque", err)
		return
	}
	httpx.OK(w, c)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	p, id, req, ok := h.settle(w, r)
	if !ok {
		return
	}
	c, err := h.service.Cancel(r.Context(), p, id, req.Reason, req.Date.Ptr())
	if err != nil {
		h.fail(w, "cancel cheque", err)
		return
	}
	httpx.OK(w, c)
}

func (h *Handler) due(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Due(r.Context(), h.service.Today())
	if err != nil {
		h.fail(w, "list due cheques", err)
		return
	}
	httpx.OK(w, items)
}

func (h *Handler) upcoming(w http.ResponseWriter, r *http.Request) {
	days, err := httpx.QueryInt(r, "days", DefaultUpcomingDays)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.Upcoming(r.Context(), h.service.Today(), days)
	if err != nil {
		h.fail(w, "list upcoming cheques", err)
		return
	}
	httpx.OK(w, items)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, "cheque stats", err)
		return
	}
	httpx.OK(w, sum)
}
