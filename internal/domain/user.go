package domain

import "time"

// User represents an account that can belong to organizations.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NotificationPreferences controls which email notifications a user receives
// for the organizations they belong to.
type NotificationPreferences struct {
	UserID               string `json:"-"`
	ServiceStatusChanges bool   `json:"service_status_changes"`
	NewIncidents         bool   `json:"new_incidents"`
	IncidentUpdates      bool   `json:"incident_updates"`
}

// DefaultNotificationPreferences returns the preferences applied to a user
// that has never saved any.
func DefaultNotificationPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:               userID,
		ServiceStatusChanges: true,
		NewIncidents:         true,
		IncidentUpdates:      true,
	}
}
