package incidents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/pkg/ctxlog"
	"github.com/statuspulse/statuspulse/internal/realtime"
)

// Broadcaster publishes entity-change events to realtime subscribers.
type Broadcaster interface {
	Broadcast(evt realtime.Event)
}

// Notifier receives incident lifecycle events for out-of-band delivery.
type Notifier interface {
	IncidentCreated(ctx context.Context, incident *domain.Incident)
	IncidentUpdated(ctx context.Context, incident *domain.Incident, update *domain.IncidentUpdate)
}

// Service implements incident business logic.
type Service struct {
	repo        Repository
	broadcaster Broadcaster
	notifier    Notifier
}

// NewService creates a new incident service. notifier may be nil when
// notifications are disabled.
func NewService(repo Repository, broadcaster Broadcaster, notifier Notifier) *Service {
	return &Service{
		repo:        repo,
		broadcaster: broadcaster,
		notifier:    notifier,
	}
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	OrgID       string
	Title       string
	Description string
	Type        domain.IncidentType
	Status      domain.IncidentStatus
	ServiceIDs  []string
}

// CreateIncident creates a new incident with validation. Linked services
// must belong to the same organization.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput) (*domain.Incident, error) {
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, input.Type)
	}

	status := input.Status
	if status == "" {
		status = defaultStatus(input.Type)
	}
	if !status.IsValidForType(input.Type) {
		return nil, fmt.Errorf("%w: %q for %q", ErrInvalidStatus, status, input.Type)
	}

	if err := s.validateServiceLinks(ctx, input.OrgID, input.ServiceIDs); err != nil {
		return nil, err
	}

	serviceIDs := input.ServiceIDs
	if serviceIDs == nil {
		serviceIDs = make([]string, 0)
	}

	now := time.Now().UTC()
	incident := &domain.Incident{
		ID:          uuid.NewString(),
		OrgID:       input.OrgID,
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Status:      status,
		ServiceIDs:  serviceIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status.IsResolved() {
		incident.ResolvedAt = &now
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("creating incident: %w", err)
	}

	s.broadcaster.Broadcast(realtime.Event{
		Type:  realtime.EventIncidentCreated,
		Data:  incident,
		OrgID: incident.OrgID,
	})
	if s.notifier != nil {
		s.notifier.IncidentCreated(ctx, incident)
	}

	ctxlog.FromContext(ctx).Info("incident created",
		slog.String("incident_id", incident.ID),
		slog.String("org_id", incident.OrgID),
		slog.String("type", string(incident.Type)),
	)
	return incident, nil
}

// GetIncident retrieves an incident scoped to the organization.
func (s *Service) GetIncident(ctx context.Context, orgID, id string) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, orgID, id)
}

// ListIncidents retrieves incidents of the organization, newest first.
func (s *Service) ListIncidents(ctx context.Context, orgID string, filter IncidentFilter) ([]domain.Incident, error) {
	incidents, err := s.repo.ListIncidents(ctx, orgID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing incidents: %w", err)
	}
	return incidents, nil
}

// UpdateIncidentInput holds data for editing an incident.
type UpdateIncidentInput struct {
	Title       string
	Description string
	Status      domain.IncidentStatus
	ServiceIDs  []string
}

// UpdateIncident edits incident fields and its service links. A status
// moved to a terminal value stamps resolved_at; moving it back clears it.
func (s *Service) UpdateIncident(ctx context.Context, orgID, id string, input UpdateIncidentInput) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if !input.Status.IsValidForType(incident.Type) {
		return nil, fmt.Errorf("%w: %q for %q", ErrInvalidStatus, input.Status, incident.Type)
	}
	if err := s.validateServiceLinks(ctx, orgID, input.ServiceIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	incident.Title = input.Title
	incident.Description = input.Description
	incident.Status = input.Status
	incident.ServiceIDs = input.ServiceIDs
	if incident.ServiceIDs == nil {
		incident.ServiceIDs = make([]string, 0)
	}
	incident.UpdatedAt = now
	switch {
	case input.Status.IsResolved() && incident.ResolvedAt == nil:
		incident.ResolvedAt = &now
	case !input.Status.IsResolved():
		incident.ResolvedAt = nil
	}

	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("updating incident: %w", err)
	}

	s.broadcaster.Broadcast(realtime.Event{
		Type:  realtime.EventIncidentUpdated,
		Data:  incident,
		OrgID: incident.OrgID,
	})

	return incident, nil
}

// DeleteIncident removes an incident and its timeline.
func (s *Service) DeleteIncident(ctx context.Context, orgID, id string) error {
	incident, err := s.repo.GetIncident(ctx, orgID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteIncident(ctx, orgID, id); err != nil {
		return fmt.Errorf("deleting incident: %w", err)
	}

	s.broadcaster.Broadcast(realtime.Event{
		Type:  realtime.EventIncidentDeleted,
		Data:  map[string]string{"id": incident.ID},
		OrgID: incident.OrgID,
	})

	ctxlog.FromContext(ctx).Info("incident deleted",
		slog.String("incident_id", incident.ID),
		slog.String("org_id", incident.OrgID),
	)
	return nil
}

// AddUpdateInput holds data for appending a timeline entry.
type AddUpdateInput struct {
	Status  domain.IncidentStatus
	Message string
}

// AddUpdate appends a timeline entry and moves the incident to the entry's
// status. Resolved incidents accept no further updates.
func (s *Service) AddUpdate(ctx context.Context, orgID, incidentID string, input AddUpdateInput) (*domain.IncidentUpdate, error) {
	incident, err := s.repo.GetIncident(ctx, orgID, incidentID)
	if err != nil {
		return nil, err
	}

	if !input.Status.IsValidForType(incident.Type) {
		return nil, fmt.Errorf("%w: %q for %q", ErrInvalidStatus, input.Status, incident.Type)
	}
	if incident.Status.IsResolved() {
		return nil, ErrIncidentResolved
	}

	now := time.Now().UTC()
	update := &domain.IncidentUpdate{
		ID:         uuid.NewString(),
		IncidentID: incident.ID,
		Status:     input.Status,
		Message:    input.Message,
		CreatedAt:  now,
	}

	incident.Status = input.Status
	incident.UpdatedAt = now
	if input.Status.IsResolved() && incident.ResolvedAt == nil {
		incident.ResolvedAt = &now
	}

	if err := s.repo.AddUpdate(ctx, update, incident); err != nil {
		return nil, fmt.Errorf("adding update: %w", err)
	}

	s.broadcaster.Broadcast(realtime.Event{
		Type:  realtime.EventUpdateCreated,
		Data:  update,
		OrgID: incident.OrgID,
	})
	s.broadcaster.Broadcast(realtime.Event{
		Type:  realtime.EventIncidentUpdated,
		Data:  incident,
		OrgID: incident.OrgID,
	})
	if s.notifier != nil {
		s.notifier.IncidentUpdated(ctx, incident, update)
	}

	ctxlog.FromContext(ctx).Info("incident update added",
		slog.String("incident_id", incident.ID),
		slog.String("status", string(update.Status)),
	)
	return update, nil
}

// ListUpdates returns the incident's timeline, oldest first.
func (s *Service) ListUpdates(ctx context.Context, orgID, incidentID string) ([]domain.IncidentUpdate, error) {
	if _, err := s.repo.GetIncident(ctx, orgID, incidentID); err != nil {
		return nil, err
	}

	updates, err := s.repo.ListUpdates(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("listing updates: %w", err)
	}
	return updates, nil
}

func (s *Service) validateServiceLinks(ctx context.Context, orgID string, serviceIDs []string) error {
	if len(serviceIDs) == 0 {
		return nil
	}
	count, err := s.repo.CountServicesInOrg(ctx, orgID, serviceIDs)
	if err != nil {
		return fmt.Errorf("validating service links: %w", err)
	}
	if count != len(serviceIDs) {
		return ErrServiceNotInOrg
	}
	return nil
}

func defaultStatus(t domain.IncidentType) domain.IncidentStatus {
	if t == domain.IncidentTypeMaintenance {
		return domain.IncidentStatusScheduled
	}
	return domain.IncidentStatusInvestigating
}
