package accounts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/landbook/landbook/internal/platform/httpx"
	"github.com/landbook/landbook/internal/shared"
)

// Handler exposes account endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Post("/{id}/deactivate", h.deactivate)
	})
}

type accountRequest struct {
	Kind           Kind            `json:"kind" validate:"omitempty,oneof=Bank Cash"`
	Name           string          `json:"name" validate:"max=120"`
	BankName       string          `json:"bankName" validate:"max=120"`
	AccountTitle   string          `json:"accountTitle" validate:"max=200"`
	AccountNumber  string          `json:"accountNumber" validate:"max=64"`
	Branch         string          `json:"branch" validate:"max=120"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

func (req accountRequest) input() Input {
	return Input{
		Kind:           req.Kind,
		Name:           req.Name,
		BankName:       req.BankName,
		AccountTitle:   req.AccountTitle,
		AccountNumber:  req.AccountNumber,
		Branch:         req.Branch,
		OpeningBalance: req.OpeningBalance,
	}
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if httpx.IsServerError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	inactive, _ := strconv.ParseBool(q.Get("includeInactive"))
	page := httpx.PageFromQuery(r)
	items, total, err := h.service.List(r.Context(), ListFilter{Kind: Kind(q.Get("kind")), IncludeInactive: inactive, Page: page})
	if err != nil {
		h.fail(w, "list accounts", err)
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
	var req accountRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.service.Create(r.Context(), p, req.input())
	if err != nil {
		h.fail(w, "create account", err)
		return
	}
	httpx.Created(w, a)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get account", err)
		return
	}
	httpx.OK(w, a)
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
	var req accountRequest
	if err := httpx.Bind(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, err := h.service.Update(r.Context(), p, id, req.input())
	if err != nil {
		h.fail(w, "update account", err)
		return
	}
	httpx.OK(w, a)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
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
	a, err := h.service.Deactivate(r.Context(), p, id)
	if err != nil {
		h.fail(w, "deactivate account", err)
		return
	}
	httpx.OK(w, a)
}
