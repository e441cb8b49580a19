// Package orgs provides HTTP handlers and business logic for organizations
// and their memberships.
package orgs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/pkg/httputil"
)

// Handler handles HTTP requests for the orgs module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new orgs handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the organization collection routes. The router
// must already require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/orgs", h.ListOrgs)
	r.Post("/orgs", h.CreateOrg)
}

// RegisterOrgRoutes registers routes for a single organization. The router
// must already resolve {slug} and require at least member role.
func (h *Handler) RegisterOrgRoutes(r chi.Router) {
	r.Get("/", h.GetOrg)
	r.Get("/members", h.ListMembers)
	r.With(h.service.RequireMember(domain.OrgRoleAdmin)).Post("/members", h.AddMember)
}

// CreateOrgRequest represents the request body for creating an organization.
type CreateOrgRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Slug string `json:"slug" validate:"omitempty,min=1,max=255"`
}

// AddMemberRequest represents the request body for adding a member.
type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin member"`
}

// CreateOrg handles POST /orgs request.
func (h *Handler) CreateOrg(w http.ResponseWriter, r *http.Request) {
	var req CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	userID := httputil.GetUserID(r.Context())
	org, err := h.service.CreateOrg(r.Context(), userID, req.Name, req.Slug)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, org)
}

// ListOrgs handles GET /orgs request.
func (h *Handler) ListOrgs(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	organizations, err := h.service.ListOrgs(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, organizations)
}

// GetOrg handles GET /orgs/{slug} request.
func (h *Handler) GetOrg(w http.ResponseWriter, r *http.Request) {
	org, ok := OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.Success(w, http.StatusOK, org)
}

// ListMembers handles GET /orgs/{slug}/members request.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	org, ok := OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	members, err := h.service.ListMembers(r.Context(), org.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, members)
}

// AddMember handles POST /orgs/{slug}/members request.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	org, ok := OrgFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	member, err := h.service.AddMember(r.Context(), org.ID, req.Email, domain.OrgRole(req.Role))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, member)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrgNotFound), errors.Is(err, ErrUserNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlugExists), errors.Is(err, ErrMemberExists):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidSlug):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotMember):
		httputil.Error(w, http.StatusForbidden, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
