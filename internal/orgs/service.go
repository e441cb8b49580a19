package orgs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/pkg/ctxlog"
	"github.com/statuspulse/statuspulse/internal/pkg/slug"
)

// UserLookup resolves users when inviting members by email.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Service contains the business logic for organizations and memberships.
type Service struct {
	repo  Repository
	users UserLookup
}

func NewService(repo Repository, users UserLookup) *Service {
	return &Service{repo: repo, users: users}
}

// CreateOrg creates an organization owned by userID. The slug is derived
// from the name unless an explicit one is given.
func (s *Service) CreateOrg(ctx context.Context, userID, name, slugInput string) (*domain.Organization, error) {
	orgSlug := slugInput
	if orgSlug == "" {
		orgSlug = slug.Make(name)
	}
	if !slug.IsValid(orgSlug) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, orgSlug)
	}

	now := time.Now().UTC()
	org := &domain.Organization{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      orgSlug,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateOrg(ctx, org, userID); err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}

	ctxlog.FromContext(ctx).Info("organization created",
		slog.String("org_id", org.ID),
		slog.String("slug", org.Slug),
	)
	return org, nil
}

// ListOrgs returns the organizations userID belongs to.
func (s *Service) ListOrgs(ctx context.Context, userID string) ([]domain.Organization, error) {
	orgs, err := s.repo.ListOrgsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return orgs, nil
}

// GetOrgBySlug returns the organization with the given slug.
func (s *Service) GetOrgBySlug(ctx context.Context, orgSlug string) (*domain.Organization, error) {
	org, err := s.repo.GetOrgBySlug(ctx, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	return org, nil
}

// GetOrgByID returns the organization with the given ID.
func (s *Service) GetOrgByID(ctx context.Context, id string) (*domain.Organization, error) {
	org, err := s.repo.GetOrgByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting organization: %w", err)
	}
	return org, nil
}

// Membership returns the caller's membership in the organization, or
// ErrNotMember when none exists.
func (s *Service) Membership(ctx context.Context, orgID, userID string) (*domain.OrgMember, error) {
	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// AddMember adds the user with the given email to the organization.
func (s *Service) AddMember(ctx context.Context, orgID, email string, role domain.OrgRole) (*domain.OrgMember, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	member := &domain.OrgMember{
		OrgID:     orgID,
		UserID:    user.ID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if errors.Is(err, ErrMemberExists) {
			return nil, ErrMemberExists
		}
		return nil, fmt.Errorf("adding member: %w", err)
	}

	ctxlog.FromContext(ctx).Info("member added",
		slog.String("org_id", orgID),
		slog.String("user_id", user.ID),
		slog.String("role", string(role)),
	)
	return member, nil
}

// ListMembers returns all members of the organization.
func (s *Service) ListMembers(ctx context.Context, orgID string) ([]domain.OrgMember, error) {
	members, err := s.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}
