package notify

import (
	"context"
	"time"
)

// Recipient is an organization member who should receive a notification.
type Recipient struct {
	UserID string
	Email  string
}

// PreferenceKind selects which opt-out flag gates a recipient list.
type PreferenceKind string

// Preference kinds, matching the columns of notification_prefs.
const (
	PrefServiceStatusChanges PreferenceKind = "service_status_changes"
	PrefNewIncidents         PreferenceKind = "new_incidents"
	PrefIncidentUpdates      PreferenceKind = "incident_updates"
)

// Repository defines the interface for notification queue data access.
type Repository interface {
	// ListRecipients returns org members who have the given preference
	// enabled. Members without saved preferences count as enabled.
	ListRecipients(ctx context.Context, orgID string, pref PreferenceKind) ([]Recipient, error)

	Enqueue(ctx context.Context, items []*QueueItem) error
	// FetchPending claims up to limit due items; claimed items are skipped
	// by concurrent workers.
	FetchPending(ctx context.Context, limit int) ([]*QueueItem, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause error) error
	MarkForRetry(ctx context.Context, id string, cause error, nextAttempt time.Time) error
}
