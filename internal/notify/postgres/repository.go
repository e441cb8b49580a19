// Package postgres provides PostgreSQL implementation of the notify repository.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statuspulse/statuspulse/internal/notify"
)

// Repository implements the notify.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListRecipients returns org members with the given preference enabled.
// Members who never saved preferences default to enabled.
func (r *Repository) ListRecipients(ctx context.Context, orgID string, pref notify.PreferenceKind) ([]notify.Recipient, error) {
	var column string
	switch pref {
	case notify.PrefServiceStatusChanges:
		column = "service_status_changes"
	case notify.PrefNewIncidents:
		column = "new_incidents"
	case notify.PrefIncidentUpdates:
		column = "incident_updates"
	default:
		return nil, fmt.Errorf("unknown preference kind: %s", pref)
	}

	query := fmt.Sprintf(`
		SELECT u.id, u.email
		FROM org_members m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN notification_prefs p ON p.user_id = u.id
		WHERE m.org_id = $1 AND COALESCE(p.%s, TRUE)
	`, column)

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	recipients := make([]notify.Recipient, 0)
	for rows.Next() {
		var rec notify.Recipient
		if err := rows.Scan(&rec.UserID, &rec.Email); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}

	return recipients, nil
}

// Enqueue inserts queue items.
func (r *Repository) Enqueue(ctx context.Context, items []*notify.QueueItem) error {
	query := `
		INSERT INTO notification_queue
			(id, org_id, user_id, email, payload, status, attempts, next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, item := range items {
		_, err := r.db.Exec(ctx, query,
			item.ID,
			item.OrgID,
			item.UserID,
			item.Email,
			item.Payload,
			item.Status,
			item.Attempts,
			item.NextAttemptAt,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("enqueue notification: %w", err)
		}
	}
	return nil
}

// FetchPending claims up to limit due items. Claiming pushes the item's
// next_attempt_at forward as a lease, so an item lost to a worker crash
// becomes due again instead of staying stuck. SKIP LOCKED keeps concurrent
// workers from claiming the same rows.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]*notify.QueueItem, error) {
	query := `
		UPDATE notification_queue
		SET next_attempt_at = NOW() + INTERVAL '1 minute', updated_at = NOW()
		WHERE id IN (
			SELECT id
			FROM notification_queue
			WHERE status = 'pending' AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, org_id, user_id, email, payload, status, attempts, next_attempt_at,
			COALESCE(last_error, ''), created_at, updated_at, sent_at
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending notifications: %w", err)
	}
	defer rows.Close()

	items := make([]*notify.QueueItem, 0)
	for rows.Next() {
		var item notify.QueueItem
		err := rows.Scan(
			&item.ID,
			&item.OrgID,
			&item.UserID,
			&item.Email,
			&item.Payload,
			&item.Status,
			&item.Attempts,
			&item.NextAttemptAt,
			&item.LastError,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue items: %w", err)
	}

	return items, nil
}

// MarkSent marks a queue item as delivered.
func (r *Repository) MarkSent(ctx context.Context, id string) error {
	query := `
		UPDATE notification_queue
		SET status = 'sent', sent_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed marks a queue item as permanently failed.
func (r *Repository) MarkFailed(ctx context.Context, id string, cause error) error {
	query := `
		UPDATE notification_queue
		SET status = 'failed', last_error = $2, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, cause.Error()); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}

// MarkForRetry schedules a queue item for another attempt.
func (r *Repository) MarkForRetry(ctx context.Context, id string, cause error, nextAttempt time.Time) error {
	query := `
		UPDATE notification_queue
		SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, cause.Error(), nextAttempt); err != nil {
		return fmt.Errorf("mark notification for retry: %w", err)
	}
	return nil
}
