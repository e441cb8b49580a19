package catalog

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

// StatusNotifier receives service status transitions for out-of-band
// delivery (email digests and the like).
type StatusNotifier interface {
	ServiceStatusChanged(ctx context.Context, service *domain.Service, oldStatus domain.ServiceStatus)
}

// Service contains the business logic for the service catalog.
type Service struct {
	repo        Repository
	broadcaster Broadcaster
	notifier    StatusNotifier
}

// NewService creates a new catalog service. notifier may be nil when
// notifications are disabled.
func NewService(repo Repository, broadcaster Broadcaster, notifier StatusNotifier) *Service {
	return &Service{
		repo:        repo,
		broadcaster: broadcaster,
		notifier:    notifier,
	}
}

// CreateServiceInput contains the fields for creating a service.
type CreateServiceInput struct {
	OrgID       string
	Name        string
	Description string
	Status      domain.ServiceStatus
	EndpointURL *string
}

// CreateService creates a new service in the organization.
func (s *Service) CreateService(ctx context.Context, input CreateServiceInput) (*domain.Service, error) {
	status := input.Status
	if status == "" {
		status = domain.ServiceStatusOperational
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	now := time.Now().UTC()
	service := &domain.Service{
		ID:          uuid.NewString(),
		OrgID:       input.OrgID,
		Name:        input.Name,
		Description: input.Description,
		Status:      status,
		EndpointURL: input.EndpointURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, fmt.Errorf("creating service: %w", err)
	}

	s.broadcaster.Broadcast(realtime.Event{
		Type:  realtime.EventServiceCreated,
		Data:  service,
		OrgID: service.OrgID,
	})

	ctxlog.FromContext(ctx).Info("service created",
		slog.String("service_id", service.ID),
		slog.String("org_id", service.OrgID),
	)
	return service, nil
}

// GetService retrieves a service scoped to the organization.
func (s *Service) GetService(ctx context.Context, orgID, id string) (*domain.Service, error) {
	service, err := s.repo.GetService(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return service, nil
}

// ListServices retrieves all services of the organization.
func (s *Service) ListServices(ctx context.Context, orgID string) ([]domain.Service, error) {
	services, err := s.repo.ListServices(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	return services, nil
}

// UpdateServiceInput contains the fields for updating a service.
type UpdateServiceInput struct {
	Name        string
	Description string
	Status      domain.ServiceStatus
	EndpointURL *string
}

// UpdateService updates a service. A status transition is broadcast and
// forwarded to the status notifier.
func (s *Service) UpdateService(ctx context.Context, orgID, id string, input UpdateServiceInput) (*domain.Service, error) {
	if !input.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	service, err := s.repo.GetService(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	oldStatus := service.Status
	service.Name = input.Name
	service.Description = input.Description
	service.Status = input.Status
	service.EndpointURL = input.EndpointURL
	service.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateService(ctx, service); err != nil {
		return nil, fmt.Errorf("updating service: %w", err)
	}

	s.broadcaster.Broadcast(realtime.Event{
		Type:  realtime.EventServiceUpdated,
		Data:  service,
		OrgID: service.OrgID,
	})

	if oldStatus != service.Status {
		ctxlog.FromContext(ctx).Info("service status changed",
			slog.String("service_id", service.ID),
			slog.String("from", string(oldStatus)),
			slog.String("to", string(service.Status)),
		)
		if s.notifier != nil {
			s.notifier.ServiceStatusChanged(ctx, service, oldStatus)
		}
	}

	return service, nil
}

// DeleteService removes a service and its recorded checks.
func (s *Service) DeleteService(ctx context.Context, orgID, id string) error {
	service, err := s.repo.GetService(ctx, orgID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteService(ctx, orgID, id); err != nil {
		return fmt.Errorf("deleting service: %w", err)
	}

	s.broadcaster.Broadcast(realtime.Event{
		Type:  realtime.EventServiceDeleted,
		Data:  map[string]string{"id": service.ID},
		OrgID: service.OrgID,
	})

	ctxlog.FromContext(ctx).Info("service deleted",
		slog.String("service_id", service.ID),
		slog.String("org_id", service.OrgID),
	)
	return nil
}
