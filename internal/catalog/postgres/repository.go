// Package postgres provides PostgreSQL implementation of the catalog repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statuspulse/statuspulse/internal/catalog"
	"github.com/statuspulse/statuspulse/internal/domain"
)

// Repository implements the catalog.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateService inserts a new service.
func (r *Repository) CreateService(ctx context.Context, service *domain.Service) error {
	query := `
		INSERT INTO services (id, org_id, name, description, status, endpoint_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		service.ID,
		service.OrgID,
		service.Name,
		service.Description,
		service.Status,
		service.EndpointURL,
		service.CreatedAt,
		service.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

// GetService retrieves a service by ID, scoped to the organization.
func (r *Repository) GetService(ctx context.Context, orgID, id string) (*domain.Service, error) {
	query := `
		SELECT id, org_id, name, description, status, endpoint_url, created_at, updated_at
		FROM services
		WHERE org_id = $1 AND id = $2
	`
	var service domain.Service
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(
		&service.ID,
		&service.OrgID,
		&service.Name,
		&service.Description,
		&service.Status,
		&service.EndpointURL,
		&service.CreatedAt,
		&service.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service: %w", err)
	}

	return &service, nil
}

// ListServices retrieves all services of an organization ordered by name.
func (r *Repository) ListServices(ctx context.Context, orgID string) ([]domain.Service, error) {
	query := `
		SELECT id, org_id, name, description, status, endpoint_url, created_at, updated_at
		FROM services
		WHERE org_id = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		var service domain.Service
		err := rows.Scan(
			&service.ID,
			&service.OrgID,
			&service.Name,
			&service.Description,
			&service.Status,
			&service.EndpointURL,
			&service.CreatedAt,
			&service.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, service)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	return services, nil
}

// UpdateService persists service field changes.
func (r *Repository) UpdateService(ctx context.Context, service *domain.Service) error {
	query := `
		UPDATE services
		SET name = $1, description = $2, status = $3, endpoint_url = $4, updated_at = $5
		WHERE org_id = $6 AND id = $7
	`
	tag, err := r.db.Exec(ctx, query,
		service.Name,
		service.Description,
		service.Status,
		service.EndpointURL,
		service.UpdatedAt,
		service.OrgID,
		service.ID,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrServiceNotFound
	}
	return nil
}

// DeleteService removes a service. Checks and rollups are removed by
// foreign key cascade.
func (r *Repository) DeleteService(ctx context.Context, orgID, id string) error {
	query := `DELETE FROM services WHERE org_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, orgID, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrServiceNotFound
	}
	return nil
}
