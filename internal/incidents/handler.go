// Package incidents provides HTTP handlers and business logic for incidents
// and maintenance windows.
package incidents

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/orgs"
	"github.com/statuspulse/statuspulse/internal/pkg/httputil"
)

// OrgResolver resolves organization slugs for the public incident feed.
type OrgResolver interface {
	GetOrgBySlug(ctx context.Context, slug string) (*domain.Organization, error)
}

// Pagination constants.
const (
	DefaultIncidentsLimit = 20
	MaxIncidentsLimit     = 100
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	orgs      OrgResolver
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service, orgResolver OrgResolver) *Handler {
	return &Handler{
		service:   service,
		orgs:      orgResolver,
		validator: validator.New(),
	}
}

// RegisterRoutes registers incident CRUD routes. The router must already
// resolve the organization and verify membership.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Post("/", h.CreateIncident)
		r.Get("/{incidentID}", h.GetIncident)
		r.Patch("/{incidentID}", h.UpdateIncident)
		r.Delete("/{incidentID}", h.DeleteIncident)
		r.Get("/{incidentID}/updates", h.ListUpdates)
		r.Post("/{incidentID}/updates", h.AddUpdate)
	})
}

// RegisterPublicRoutes registers the unauthenticated incident feed route.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/orgs/{slug}/incidents", h.PublicIncidents)
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=255"`
	Description string   `json:"description"`
	Type        string   `json:"type" validate:"required,oneof=incident maintenance"`
	Status      string   `json:"status" validate:"omitempty,oneof=investigating identified monitoring resolved scheduled in_progress completed"`
	ServiceIDs  []string `json:"service_ids"`
}

// UpdateIncidentRequest represents the request body for editing an incident.
type UpdateIncidentRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=255"`
	Description string   `json:"description"`
	Status      string   `json:"status" validate:"required,oneof=investigating identified monitoring resolved scheduled in_progress completed"`
	ServiceIDs  []string `json:"service_ids"`
}

// AddUpdateRequest represents the request body for a timeline entry.
type AddUpdateRequest struct {
	Status  string `json:"status" validate:"required,oneof=investigating identified monitoring resolved scheduled in_progress completed"`
	Message string `json:"message" validate:"required,min=1"`
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), CreateIncidentInput{
		OrgID:       org.ID,
		Title:       req.Title,
		Description: req.Description,
		Type:        domain.IncidentType(req.Type),
		Status:      domain.IncidentStatus(req.Status),
		ServiceIDs:  req.ServiceIDs,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// GetIncident handles GET /incidents/{incidentID} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	incident, err := h.service.GetIncident(r.Context(), org.ID, chi.URLParam(r, "incidentID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// UpdateIncident handles PATCH /incidents/{incidentID} request.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	var req UpdateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.UpdateIncident(r.Context(), org.ID, chi.URLParam(r, "incidentID"), UpdateIncidentInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.IncidentStatus(req.Status),
		ServiceIDs:  req.ServiceIDs,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, incident)
}

// DeleteIncident handles DELETE /incidents/{incidentID} request.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.service.DeleteIncident(r.Context(), org.ID, chi.URLParam(r, "incidentID")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddUpdate handles POST /incidents/{incidentID}/updates request.
func (h *Handler) AddUpdate(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	var req AddUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	update, err := h.service.AddUpdate(r.Context(), org.ID, chi.URLParam(r, "incidentID"), AddUpdateInput{
		Status:  domain.IncidentStatus(req.Status),
		Message: req.Message,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, update)
}

// ListUpdates handles GET /incidents/{incidentID}/updates request.
func (h *Handler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	updates, err := h.service.ListUpdates(r.Context(), org.ID, chi.URLParam(r, "incidentID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, updates)
}

// PublicIncidents handles GET /orgs/{slug}/incidents request. No
// authentication required.
func (h *Handler) PublicIncidents(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgs.GetOrgBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			httputil.Error(w, http.StatusNotFound, "organization not found")
			return
		}
		slog.Error("failed to resolve organization", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	filter, err := parseIncidentFilter(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	incidents, err := h.service.ListIncidents(r.Context(), org.ID, filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, incidents)
}

func parseIncidentFilter(r *http.Request) (IncidentFilter, error) {
	filter := IncidentFilter{Limit: DefaultIncidentsLimit}

	if r.URL.Query().Get("active") == "true" {
		filter.ActiveOnly = true
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		if parsed > MaxIncidentsLimit {
			parsed = MaxIncidentsLimit
		}
		filter.Limit = parsed
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = parsed
	}

	return filter, nil
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrIncidentNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrServiceNotInOrg):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrIncidentResolved):
		httputil.Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
