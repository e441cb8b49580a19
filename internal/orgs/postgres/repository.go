// Package postgres provides PostgreSQL implementation of the orgs repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/orgs"
)

// Repository implements the orgs.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateOrg inserts the organization and its first admin member in one
// transaction.
func (r *Repository) CreateOrg(ctx context.Context, org *domain.Organization, adminUserID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	orgQuery := `
		INSERT INTO organizations (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(ctx, orgQuery, org.ID, org.Name, org.Slug, org.CreatedAt, org.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return orgs.ErrSlugExists
		}
		return fmt.Errorf("insert organization: %w", err)
	}

	memberQuery := `
		INSERT INTO org_members (org_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, memberQuery, org.ID, adminUserID, domain.OrgRoleAdmin, org.CreatedAt); err != nil {
		return fmt.Errorf("insert admin member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetOrgBySlug retrieves an organization by its slug.
func (r *Repository) GetOrgBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		WHERE slug = $1
	`
	var org domain.Organization
	err := r.db.QueryRow(ctx, query, slug).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orgs.ErrOrgNotFound
		}
		return nil, fmt.Errorf("get organization by slug: %w", err)
	}

	return &org, nil
}

// GetOrgByID retrieves an organization by its ID.
func (r *Repository) GetOrgByID(ctx context.Context, id string) (*domain.Organization, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	var org domain.Organization
	err := r.db.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orgs.ErrOrgNotFound
		}
		return nil, fmt.Errorf("get organization by id: %w", err)
	}

	return &org, nil
}

// ListOrgsForUser retrieves all organizations the user is a member of.
func (r *Repository) ListOrgsForUser(ctx context.Context, userID string) ([]domain.Organization, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.created_at, o.updated_at
		FROM organizations o
		JOIN org_members m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.name
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list organizations for user: %w", err)
	}
	defer rows.Close()

	organizations := make([]domain.Organization, 0)
	for rows.Next() {
		var org domain.Organization
		err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		organizations = append(organizations, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}

	return organizations, nil
}

// AddMember inserts a membership row.
func (r *Repository) AddMember(ctx context.Context, member *domain.OrgMember) error {
	query := `
		INSERT INTO org_members (org_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, member.OrgID, member.UserID, member.Role, member.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return orgs.ErrMemberExists
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetMember retrieves a user's membership in an organization.
func (r *Repository) GetMember(ctx context.Context, orgID, userID string) (*domain.OrgMember, error) {
	query := `
		SELECT org_id, user_id, role, created_at
		FROM org_members
		WHERE org_id = $1 AND user_id = $2
	`
	var member domain.OrgMember
	err := r.db.QueryRow(ctx, query, orgID, userID).Scan(
		&member.OrgID,
		&member.UserID,
		&member.Role,
		&member.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orgs.ErrNotMember
		}
		return nil, fmt.Errorf("get member: %w", err)
	}

	return &member, nil
}

// ListMembers retrieves all members of an organization.
func (r *Repository) ListMembers(ctx context.Context, orgID string) ([]domain.OrgMember, error) {
	query := `
		SELECT org_id, user_id, role, created_at
		FROM org_members
		WHERE org_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]domain.OrgMember, 0)
	for rows.Next() {
		var member domain.OrgMember
		err := rows.Scan(&member.OrgID, &member.UserID, &member.Role, &member.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
