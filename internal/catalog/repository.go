package catalog

import (
	"context"

	"github.com/statuspulse/statuspulse/internal/domain"
)

// Repository defines the interface for catalog data operations. All reads
// and writes are scoped to an organization.
type Repository interface {
	CreateService(ctx context.Context, service *domain.Service) error
	GetService(ctx context.Context, orgID, id string) (*domain.Service, error)
	ListServices(ctx context.Context, orgID string) ([]domain.Service, error)
	UpdateService(ctx context.Context, service *domain.Service) error
	DeleteService(ctx context.Context, orgID, id string) error
}
