// Package notify delivers email notifications to organization members
// through a persistent queue with retries.
package notify

import "time"

// MessageKind identifies what a queued notification is about.
type MessageKind string

// Message kinds.
const (
	KindServiceStatusChanged MessageKind = "service_status_changed"
	KindIncidentCreated      MessageKind = "incident_created"
	KindIncidentUpdated      MessageKind = "incident_updated"
)

// QueueStatus represents the status of a queue item.
type QueueStatus string

// Queue statuses.
const (
	QueueStatusPending QueueStatus = "pending"
	QueueStatusSent    QueueStatus = "sent"
	QueueStatusFailed  QueueStatus = "failed"
)

// Payload carries the facts a notification is rendered from. It is stored
// as JSONB so queued items survive restarts and entity deletions.
type Payload struct {
	Kind           MessageKind `json:"kind"`
	OrgName        string      `json:"org_name"`
	ServiceName    string      `json:"service_name,omitempty"`
	OldStatus      string      `json:"old_status,omitempty"`
	NewStatus      string      `json:"new_status,omitempty"`
	IncidentTitle  string      `json:"incident_title,omitempty"`
	IncidentStatus string      `json:"incident_status,omitempty"`
	Message        string      `json:"message,omitempty"`
}

// QueueItem represents a notification in the queue.
type QueueItem struct {
	ID            string
	OrgID         string
	UserID        string
	Email         string
	Payload       Payload
	Status        QueueStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SentAt        *time.Time
}
