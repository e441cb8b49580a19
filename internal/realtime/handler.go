package realtime

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/pkg/ctxlog"
	"github.com/statuspulse/statuspulse/internal/pkg/httputil"
)

// OrgResolver resolves an organization slug to the organization.
type OrgResolver interface {
	GetOrgBySlug(ctx context.Context, slug string) (*domain.Organization, error)
}

// Handler upgrades HTTP requests to WebSocket subscriptions.
type Handler struct {
	hub      *Hub
	orgs     OrgResolver
	upgrader websocket.Upgrader
}

// NewHandler creates a new realtime handler.
func NewHandler(hub *Hub, orgs OrgResolver, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &Handler{
		hub:  hub,
		orgs: orgs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // non-browser clients
				}
				if allowed[origin] || allowed["*"] {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				host := u.Hostname()
				return host == "localhost" || host == "127.0.0.1" || host == "::1"
			},
		},
	}
}

// RegisterRoutes registers the public WebSocket route. Status pages are
// public, so subscribing requires no authentication; events are still
// scoped to the named organization server-side.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/orgs/{slug}/ws", h.Subscribe)
}

// Subscribe handles GET /orgs/{slug}/ws.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	org, err := h.orgs.GetOrgBySlug(r.Context(), slug)
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "organization not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		ctxlog.FromContext(r.Context()).Debug("websocket upgrade failed", "error", err)
		return
	}

	h.hub.Register(conn, org.ID)
}
