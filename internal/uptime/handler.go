package uptime

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/statuspulse/statuspulse/internal/catalog"
	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/orgs"
	"github.com/statuspulse/statuspulse/internal/pkg/httputil"
)

// Handler handles HTTP requests for the uptime module.
type Handler struct {
	service *Service
}

// NewHandler creates a new uptime handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers uptime routes under the service subtree. The
// router must already resolve the organization and verify membership.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/services/{serviceID}/check", h.TriggerCheck)
	r.Get("/services/{serviceID}/uptime", h.GetRollups)
	r.Get("/services/{serviceID}/metrics/uptime", h.GetTrailingMetrics)
}

// TriggerCheck handles POST /services/{serviceID}/check request. The probe
// runs in the background; the response only reports whether one was
// started.
func (h *Handler) TriggerCheck(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	started, err := h.service.TriggerCheck(r.Context(), org.ID, chi.URLParam(r, "serviceID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusAccepted, map[string]bool{"started": started})
}

// GetRollups handles GET /services/{serviceID}/uptime request. Query
// parameters: period (daily|weekly|monthly, default daily) and days
// (how far back to look, default 30).
func (h *Handler) GetRollups(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	period := domain.RollupPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.RollupPeriodDaily
	}

	days := 0
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	rollups, err := h.service.Rollups(r.Context(), org.ID, chi.URLParam(r, "serviceID"), period, days)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, rollups)
}

// GetTrailingMetrics handles GET /services/{serviceID}/metrics/uptime
// request. Query parameter period selects the trailing window
// (24h|7d|30d, default 24h).
func (h *Handler) GetTrailingMetrics(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	period := TrailingPeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = Trailing24h
	}

	report, err := h.service.TrailingMetrics(r.Context(), org.ID, chi.URLParam(r, "serviceID"), period)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, report)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrServiceNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotMonitored):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidPeriod):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
