// Package postgres provides PostgreSQL implementation of the identity repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/identity"
)

// Repository implements the identity.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return identity.ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, `WHERE email = $1`, email)
}

func (r *Repository) getUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `SELECT id, email, name, password_hash, created_at FROM users ` + where

	var user domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// GetNotificationPreferences retrieves the user's saved preferences.
func (r *Repository) GetNotificationPreferences(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	query := `
		SELECT user_id, service_status_changes, new_incidents, incident_updates
		FROM notification_prefs
		WHERE user_id = $1
	`
	var prefs domain.NotificationPreferences
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&prefs.UserID,
		&prefs.ServiceStatusChanges,
		&prefs.NewIncidents,
		&prefs.IncidentUpdates,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrPreferencesNotSet
		}
		return nil, fmt.Errorf("get notification preferences: %w", err)
	}

	return &prefs, nil
}

// UpsertNotificationPreferences saves the user's preferences.
func (r *Repository) UpsertNotificationPreferences(ctx context.Context, prefs *domain.NotificationPreferences) error {
	query := `
		INSERT INTO notification_prefs (user_id, service_status_changes, new_incidents, incident_updates)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			service_status_changes = EXCLUDED.service_status_changes,
			new_incidents = EXCLUDED.new_incidents,
			incident_updates = EXCLUDED.incident_updates
	`
	_, err := r.db.Exec(ctx, query,
		prefs.UserID,
		prefs.ServiceStatusChanges,
		prefs.NewIncidents,
		prefs.IncidentUpdates,
	)
	if err != nil {
		return fmt.Errorf("upsert notification preferences: %w", err)
	}
	return nil
}
