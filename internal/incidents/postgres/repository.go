// Package postgres provides PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/incidents"
)

// Repository implements the incidents.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateIncident inserts the incident and its service links in one
// transaction.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	query := `
		INSERT INTO incidents (id, org_id, title, description, type, status, created_at, updated_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.Exec(ctx, query,
		incident.ID,
		incident.OrgID,
		incident.Title,
		incident.Description,
		incident.Type,
		incident.Status,
		incident.CreatedAt,
		incident.UpdatedAt,
		incident.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}

	if err := insertServiceLinks(ctx, tx, incident.ID, incident.ServiceIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetIncident retrieves an incident by ID, scoped to the organization.
func (r *Repository) GetIncident(ctx context.Context, orgID, id string) (*domain.Incident, error) {
	query := `
		SELECT id, org_id, title, description, type, status, created_at, updated_at, resolved_at
		FROM incidents
		WHERE org_id = $1 AND id = $2
	`
	var incident domain.Incident
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(
		&incident.ID,
		&incident.OrgID,
		&incident.Title,
		&incident.Description,
		&incident.Type,
		&incident.Status,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&incident.ResolvedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}

	serviceIDs, err := r.getServiceLinks(ctx, incident.ID)
	if err != nil {
		return nil, err
	}
	incident.ServiceIDs = serviceIDs

	return &incident, nil
}

// ListIncidents retrieves incidents of an organization, newest first.
func (r *Repository) ListIncidents(ctx context.Context, orgID string, filter incidents.IncidentFilter) ([]domain.Incident, error) {
	query := `
		SELECT id, org_id, title, description, type, status, created_at, updated_at, resolved_at
		FROM incidents
		WHERE org_id = $1
	`
	if filter.ActiveOnly {
		query += ` AND resolved_at IS NULL AND status <> 'scheduled'`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, orgID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Incident, 0)
	for rows.Next() {
		var incident domain.Incident
		err := rows.Scan(
			&incident.ID,
			&incident.OrgID,
			&incident.Title,
			&incident.Description,
			&incident.Type,
			&incident.Status,
			&incident.CreatedAt,
			&incident.UpdatedAt,
			&incident.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		list = append(list, incident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	for i := range list {
		serviceIDs, err := r.getServiceLinks(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].ServiceIDs = serviceIDs
	}

	return list, nil
}

// UpdateIncident persists incident fields and replaces its service links.
func (r *Repository) UpdateIncident(ctx context.Context, incident *domain.Incident) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	query := `
		UPDATE incidents
		SET title = $1, description = $2, status = $3, updated_at = $4, resolved_at = $5
		WHERE org_id = $6 AND id = $7
	`
	tag, err := tx.Exec(ctx, query,
		incident.Title,
		incident.Description,
		incident.Status,
		incident.UpdatedAt,
		incident.ResolvedAt,
		incident.OrgID,
		incident.ID,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM incident_services WHERE incident_id = $1`, incident.ID); err != nil {
		return fmt.Errorf("delete service links: %w", err)
	}
	if err := insertServiceLinks(ctx, tx, incident.ID, incident.ServiceIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DeleteIncident removes an incident. Links and updates are removed by
// foreign key cascade.
func (r *Repository) DeleteIncident(ctx context.Context, orgID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}

// AddUpdate appends a timeline entry and persists the incident's new status
// in the same transaction.
func (r *Repository) AddUpdate(ctx context.Context, update *domain.IncidentUpdate, incident *domain.Incident) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	insertQuery := `
		INSERT INTO incident_updates (id, incident_id, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.Exec(ctx, insertQuery,
		update.ID,
		update.IncidentID,
		update.Status,
		update.Message,
		update.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert incident update: %w", err)
	}

	updateQuery := `
		UPDATE incidents
		SET status = $1, updated_at = $2, resolved_at = $3
		WHERE id = $4
	`
	if _, err := tx.Exec(ctx, updateQuery, incident.Status, incident.UpdatedAt, incident.ResolvedAt, incident.ID); err != nil {
		return fmt.Errorf("update incident status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListUpdates retrieves an incident's timeline, oldest first.
func (r *Repository) ListUpdates(ctx context.Context, incidentID string) ([]domain.IncidentUpdate, error) {
	query := `
		SELECT id, incident_id, status, message, created_at
		FROM incident_updates
		WHERE incident_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list incident updates: %w", err)
	}
	defer rows.Close()

	updates := make([]domain.IncidentUpdate, 0)
	for rows.Next() {
		var update domain.IncidentUpdate
		err := rows.Scan(&update.ID, &update.IncidentID, &update.Status, &update.Message, &update.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan incident update: %w", err)
		}
		updates = append(updates, update)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident updates: %w", err)
	}

	return updates, nil
}

// CountServicesInOrg reports how many of the given service IDs exist in the
// organization.
func (r *Repository) CountServicesInOrg(ctx context.Context, orgID string, serviceIDs []string) (int, error) {
	query := `SELECT COUNT(*) FROM services WHERE org_id = $1 AND id = ANY($2)`

	var count int
	if err := r.db.QueryRow(ctx, query, orgID, serviceIDs).Scan(&count); err != nil {
		return 0, fmt.Errorf("count services in org: %w", err)
	}
	return count, nil
}

func insertServiceLinks(ctx context.Context, tx pgx.Tx, incidentID string, serviceIDs []string) error {
	if len(serviceIDs) == 0 {
		return nil
	}
	query := `INSERT INTO incident_services (incident_id, service_id) VALUES ($1, $2)`
	for _, serviceID := range serviceIDs {
		if _, err := tx.Exec(ctx, query, incidentID, serviceID); err != nil {
			return fmt.Errorf("link service %s: %w", serviceID, err)
		}
	}
	return nil
}

func (r *Repository) getServiceLinks(ctx context.Context, incidentID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT service_id FROM incident_services WHERE incident_id = $1`, incidentID)
	if err != nil {
		return nil, fmt.Errorf("get service links: %w", err)
	}
	defer rows.Close()

	serviceIDs := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan service link: %w", err)
		}
		serviceIDs = append(serviceIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service links: %w", err)
	}

	return serviceIDs, nil
}
