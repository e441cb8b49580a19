package orgs

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/pkg/httputil"
)

type contextKey string

const (
	orgKey  contextKey = "org"
	roleKey contextKey = "org_role"
)

// OrgFromContext returns the organization resolved by RequireMember.
func OrgFromContext(ctx context.Context) (*domain.Organization, bool) {
	org, ok := ctx.Value(orgKey).(*domain.Organization)
	return org, ok
}

// RoleFromContext returns the caller's role in the resolved organization.
func RoleFromContext(ctx context.Context) (domain.OrgRole, bool) {
	role, ok := ctx.Value(roleKey).(domain.OrgRole)
	return role, ok
}

// RequireMember resolves the {slug} URL parameter to an organization and
// verifies the authenticated user is a member with at least minRole. The
// organization and role are stored on the request context.
func (s *Service) RequireMember(minRole domain.OrgRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := httputil.GetUserID(r.Context())
			if userID == "" {
				httputil.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}

			org, err := s.repo.GetOrgBySlug(r.Context(), chi.URLParam(r, "slug"))
			if err != nil {
				if errors.Is(err, ErrOrgNotFound) {
					httputil.Error(w, http.StatusNotFound, "organization not found")
					return
				}
				httputil.Error(w, http.StatusInternalServerError, "internal server error")
				return
			}

			member, err := s.repo.GetMember(r.Context(), org.ID, userID)
			if err != nil {
				if errors.Is(err, ErrNotMember) {
					// Membership is not disclosed to outsiders.
					httputil.Error(w, http.StatusNotFound, "organization not found")
					return
				}
				httputil.Error(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if !member.Role.HasPermission(minRole) {
				httputil.Error(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), orgKey, org)
			ctx = context.WithValue(ctx, roleKey, member.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
