// Package catalog provides HTTP handlers and business logic for managing
// the services on an organization's status page.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/orgs"
	"github.com/statuspulse/statuspulse/internal/pkg/httputil"
)

// OrgResolver resolves organization slugs for the public status page.
type OrgResolver interface {
	GetOrgBySlug(ctx context.Context, slug string) (*domain.Organization, error)
}

// Handler handles HTTP requests for the catalog module.
type Handler struct {
	service   *Service
	orgs      OrgResolver
	validator *validator.Validate
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service, orgResolver OrgResolver) *Handler {
	return &Handler{
		service:   service,
		orgs:      orgResolver,
		validator: validator.New(),
	}
}

// RegisterRoutes registers service CRUD routes. The router must already
// resolve the organization and verify membership.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/services", h.ListServices)
	r.Post("/services", h.CreateService)
	r.Get("/services/{serviceID}", h.GetService)
	r.Patch("/services/{serviceID}", h.UpdateService)
	r.Delete("/services/{serviceID}", h.DeleteService)
}

// RegisterPublicRoutes registers the unauthenticated status page route.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/orgs/{slug}/status", h.PublicStatus)
}

// CreateServiceRequest represents the request body for creating a service.
type CreateServiceRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description string  `json:"description"`
	Status      string  `json:"status" validate:"omitempty,oneof=operational degraded partial_outage major_outage maintenance"`
	EndpointURL *string `json:"endpoint_url" validate:"omitempty,url"`
}

// UpdateServiceRequest represents the request body for updating a service.
type UpdateServiceRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description string  `json:"description"`
	Status      string  `json:"status" validate:"required,oneof=operational degraded partial_outage major_outage maintenance"`
	EndpointURL *string `json:"endpoint_url" validate:"omitempty,url"`
}

// CreateService handles POST /services request.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	service, err := h.service.CreateService(r.Context(), CreateServiceInput{
		OrgID:       org.ID,
		Name:        req.Name,
		Description: req.Description,
		Status:      domain.ServiceStatus(req.Status),
		EndpointURL: req.EndpointURL,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, service)
}

// GetService handles GET /services/{serviceID} request.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	service, err := h.service.GetService(r.Context(), org.ID, chi.URLParam(r, "serviceID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

// ListServices handles GET /services request.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	services, err := h.service.ListServices(r.Context(), org.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, services)
}

// UpdateService handles PATCH /services/{serviceID} request.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	var req UpdateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	service, err := h.service.UpdateService(r.Context(), org.ID, chi.URLParam(r, "serviceID"), UpdateServiceInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      domain.ServiceStatus(req.Status),
		EndpointURL: req.EndpointURL,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

// DeleteService handles DELETE /services/{serviceID} request.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	org, ok := orgs.OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.service.DeleteService(r.Context(), org.ID, chi.URLParam(r, "serviceID")); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PublicStatus handles GET /orgs/{slug}/status request. No authentication
// required; this is what the status page itself renders.
func (h *Handler) PublicStatus(w http.ResponseWriter, r *http.Request) {
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

	services, err := h.service.ListServices(r.Context(), org.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]interface{}{
		"organization": org,
		"services":     services,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrServiceNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
