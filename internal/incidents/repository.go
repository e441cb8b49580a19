package incidents

import (
	"context"

	"github.com/statuspulse/statuspulse/internal/domain"
)

// IncidentFilter represents filter criteria for listing incidents.
type IncidentFilter struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository defines the interface for incident data operations. All reads
// and writes are scoped to an organization.
type Repository interface {
	// CreateIncident inserts the incident and its service links atomically.
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncident(ctx context.Context, orgID, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, orgID string, filter IncidentFilter) ([]domain.Incident, error)
	// UpdateIncident persists incident fields and replaces its service links.
	UpdateIncident(ctx context.Context, incident *domain.Incident) error
	DeleteIncident(ctx context.Context, orgID, id string) error

	// AddUpdate appends a timeline entry and persists the incident's new
	// status in the same transaction.
	AddUpdate(ctx context.Context, update *domain.IncidentUpdate, incident *domain.Incident) error
	ListUpdates(ctx context.Context, incidentID string) ([]domain.IncidentUpdate, error)

	// CountServicesInOrg reports how many of the given service IDs exist in
	// the organization. Used to reject cross-tenant links.
	CountServicesInOrg(ctx context.Context, orgID string, serviceIDs []string) (int, error)
}
