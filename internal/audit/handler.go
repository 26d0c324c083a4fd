package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/landbook/landbook/internal/auth"
	"github.com/landbook/landbook/internal/platform/httpx"
	"github.com/landbook/landbook/internal/shared"
)

const (
	defaultRange = 7 * 24 * time.Hour
	maxRange     = 90 * 24 * time.Hour
)

// Handler exposes the audit timeline to Admin and HOF.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(auth.RequireRoles(shared.RoleAdmin, shared.RoleHOF))
		r.Get("/", h.timeline)
		r.Get("/export", h.export)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if err := WriteCSV(w, rows); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters reads from/to as inclusive calendar days. The window defaults
// to the last seven days and may not exceed ninety.
func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	to := shared.DateOf(h.now().UTC())
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		parsed, err := time.Parse(shared.DateLayout, v)
		if err != nil {
			return TimelineFilters{}, shared.Wrapf(shared.ErrValidation, "to must be %s", shared.DateLayout)
		}
		to = parsed
	}
	from := to.Add(-defaultRange)
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		parsed, err := time.Parse(shared.DateLayout, v)
		if err != nil {
			return TimelineFilters{}, shared.Wrapf(shared.ErrValidation, "from must be %s", shared.DateLayout)
		}
		from = parsed
	}
	if from.After(to) {
		return TimelineFilters{}, shared.Wrap(shared.ErrValidation, "from must not be after to")
	}
	if to.Sub(from) > maxRange {
		return TimelineFilters{}, shared.Wrap(shared.ErrValidation, "range must not exceed 90 days")
	}

	var actor int64
	if v := strings.TrimSpace(q.Get("actorId")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			return TimelineFilters{}, shared.Wrap(shared.ErrValidation, "actorId must be a positive integer")
		}
		actor = parsed
	}
	page := httpx.PageFromQuery(r)
	return TimelineFilters{
		From:     from,
		To:       to.AddDate(0, 0, 1),
		ActorID:  actor,
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entityId")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page.Page,
		PageSize: page.PerPage,
	}, nil
}
