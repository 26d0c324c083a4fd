package payroll

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/platform/httpx"
	"github.com/landbook/landbook/internal/shared"
)

// Handler exposes employee cost endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers employee cost routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/employee-costs", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type costRequest struct {
	EmployeeID      int64                `json:"employeeId" validate:"required,gt=0"`
	Month           int                  `json:"month" validate:"required,min=1,max=12"`
	Year            int                  `json:"year" validate:"required,min=2000,max=2100"`
	Salary          decimal.Decimal      `json:"salary"`
	Commission      decimal.Decimal      `json:"commission"`
	Fuel            decimal.Decimal      `json:"fuel"`
	Entertainment   decimal.Decimal      `json:"entertainment"`
	Bonus           decimal.Decimal      `json:"bonus"`
	Overtime        decimal.Decimal      `json:"overtime"`
	OtherAllowances decimal.Decimal      `json:"otherAllowances"`
	Advances        decimal.Decimal      `json:"advances"`
	Deductions      decimal.Decimal      `json:"deductions"`
	PaymentDate     *shared.Date         `json:"paymentDate"`
	PaymentMethod   shared.PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=Cash Bank Cheque"`
	Notes           string               `json:"notes" validate:"max=1000"`
}

func (req costRequest) input() Input {
	return Input{
		EmployeeID: req.EmployeeID,
		Month:      req.Month,
		Year:       req.Year,
		Components: Components{
			Salary:          req.Salary,
			Commission:      req.Commission,
			Fuel:            req.Fuel,
			Entertainment:   req.Entertainment,
			Bonus:           req.Bonus,
			Overtime:        req.Overtime,
			OtherAllowances: req.OtherAllowances,
			Advances:        req.Advances,
			Deductions:      req.Deductions,
		},
		PaymentDate:   req.PaymentDate.Ptr(),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	employeeID, err := httpx.QueryInt64(r, "employeeId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	month, err := httpx.QueryInt(r, "month", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	year, err := httpx.QueryInt(r, "year", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := httpx.PageFromQuery(r)
	items, total, err := h.service.List(r.Context(), ListFilter{EmployeeID: employeeID, Month: month, Year: year, Page: page})
	if err != nil {
		h.fail(w, "list employee costs", err)
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
	var req costRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Create(r.Context(), p, req.input())
	if err != nil {
		h.fail(w, "create employee cost", err)
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
		h.fail(w, "get employee cost", err)
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
	var req costRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Update(r.Context(), p, id, req.input())
	if err != nil {
		h.fail(w, "update employee cost", err)
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
		h.fail(w, "delete employee cost", err)
		return
	}
	httpx.OK(w, map[string]int64{"id": id})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, "employee cost stats", err)
		return
	}
	httpx.OK(w, sum)
}
