package expenses

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

// Handler exposes expense endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/approval-queue", h.approvalQueue)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/submit", h.submit)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
	r.Get("/expense-categories", h.listCategories)
	r.Post("/expense-categories", h.createCategory)
}

type expenseRequest struct {
	CategoryID        int64                    `json:"categoryId" validate:"required,gt=0"`
	Amount            decimal.Decimal          `json:"amount"`
	ExpenseDate       *shared.Date             `json:"expenseDate"`
	Vendor            string                   `json:"vendor" validate:"max=200"`
	Description       string                   `json:"description" validate:"required,max=1000"`
	PaymentMethod     shared.PaymentMethod     `json:"paymentMethod" validate:"required,oneof=Cash Bank Cheque"`
	InstrumentDetails shared.InstrumentDetails `json:"instrumentDetails"`
}

func (req expenseRequest) input() Input {
	return Input{
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		ExpenseDate:   req.ExpenseDate.Ptr(),
		Vendor:        req.Vendor,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Instrument:    req.InstrumentDetails,
	}
}

type remarksRequest struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
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
	categoryID, err := httpx.QueryInt64(r, "categoryId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := httpx.PageFromQuery(r)
	items, total, err := h.service.List(r.Context(), ListFilter{
		Status:     shared.ApprovalStatus(q.Get("status")),
		CategoryID: categoryID,
		From:       from,
		To:         to,
		Search:     q.Get("search"),
		Page:       page,
	})
	if err != nil {
		h.fail(w, "list expenses", err)
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
	var req expenseRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	exp, err := h.service.Create(r.Context(), p, req.input())
	if err != nil {
		h.fail(w, "create expense", err)
		return
	}
	httpx.Created(w, exp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	exp, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get expense", err)
		return
	}
	httpx.OK(w, exp)
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
	var req expenseRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	exp, err := h.service.Update(r.Context(), p, id, req.input())
	if err != nil {
		h.fail(w, "update expense", err)
		return
	}
	httpx.OK(w, exp)
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
		h.fail(w, "delete expense", err)
		return
	}
	httpx.OK(w, map[string]int64{"id": id})
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
	exp, err := h.service.Submit(r.Context(), p, id)
	if err != nil {
		h.fail(w, "submit expense", err)
		return
	}
	httpx.OK(w, exp)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve expense", h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject expense", h.service.Reject)
}

type decisionFunc func(ctx context.Context, p shared.Principal, id int64, remarks string) (Expense, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, msg string, fn decisionFunc) {
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
	exp, err := fn(r.Context(), p, id, req.Remarks)
	if err != nil {
		h.fail(w, msg, err)
		return
	}
	httpx.OK(w, exp)
}

func (h *Handler) approvalQueue(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ApprovalQueue(r.Context(), p)
	if err != nil {
		h.fail(w, "expense approval queue", err)
		return
	}
	httpx.OK(w, items)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, "expense stats", err)
		return
	}
	httpx.OK(w, sum)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.fail(w, "list expense categories", err)
		return
	}
	httpx.OK(w, items)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	p, err := httpx.Principal(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req categoryRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), p, req.Name)
	if err != nil {
		h.fail(w, "create expense category", err)
		return
	}
	httpx.Created(w, c)
}
