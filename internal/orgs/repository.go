package orgs

import (
	"context"

	"github.com/statuspulse/statuspulse/internal/domain"
)

// Repository defines the interface for organization data operations.
type Repository interface {
	// CreateOrg creates the organization and its first admin member in one
	// transaction.
	CreateOrg(ctx context.Context, org *domain.Organization, adminUserID string) error
	GetOrgBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	GetOrgByID(ctx context.Context, id string) (*domain.Organization, error)
	ListOrgsForUser(ctx context.Context, userID string) ([]domain.Organization, error)

	AddMember(ctx context.Context, member *domain.OrgMember) error
	GetMember(ctx context.Context, orgID, userID string) (*domain.OrgMember, error)
	ListMembers(ctx context.Context, orgID string) ([]domain.OrgMember, error)
}
