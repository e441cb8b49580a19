package domain

import "time"

// IncidentType distinguishes unplanned incidents from planned maintenance
// windows. The two types have disjoint status sets.
type IncidentType string

// Incident types.
const (
	IncidentTypeIncident    IncidentType = "incident"
	IncidentTypeMaintenance IncidentType = "maintenance"
)

// IsValid checks if the incident type is valid.
func (t IncidentType) IsValid() bool {
	return t == IncidentTypeIncident || t == IncidentTypeMaintenance
}

// IncidentStatus represents the current state of an incident or maintenance.
type IncidentStatus string

// Incident statuses. Incidents move investigating -> identified ->
// monitoring -> resolved; maintenances move scheduled -> in_progress ->
// completed.
const (
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusIdentified    IncidentStatus = "identified"
	IncidentStatusMonitoring    IncidentStatus = "monitoring"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusScheduled     IncidentStatus = "scheduled"
	IncidentStatusInProgress    IncidentStatus = "in_progress"
	IncidentStatusCompleted     IncidentStatus = "completed"
)

// IsValidForType checks if the status is valid for the given incident type.
func (s IncidentStatus) IsValidForType(t IncidentType) bool {
	switch t {
	case IncidentTypeIncident:
		return s == IncidentStatusInvestigating ||
			s == IncidentStatusIdentified ||
			s == IncidentStatusMonitoring ||
			s == IncidentStatusResolved
	case IncidentTypeMaintenance:
		return s == IncidentStatusScheduled ||
			s == IncidentStatusInProgress ||
			s == IncidentStatusCompleted
	}
	return false
}

// IsResolved checks if the status represents a terminal state.
func (s IncidentStatus) IsResolved() bool {
	return s == IncidentStatusResolved || s == IncidentStatusCompleted
}

// IsActive checks if the status counts as an open disruption. Scheduled
// maintenance is not active until it transitions to in_progress.
func (s IncidentStatus) IsActive() bool {
	return s != IncidentStatusResolved &&
		s != IncidentStatusCompleted &&
		s != IncidentStatusScheduled
}

// Incident represents a reported disruption or a maintenance window
// affecting one or more services of an organization.
type Incident struct {
	ID          string         `json:"id"`
	OrgID       string         `json:"org_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        IncidentType   `json:"type"`
	Status      IncidentStatus `json:"status"`
	ServiceIDs  []string       `json:"service_ids"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
}

// IncidentUpdate is an immutable narrative entry on an incident's timeline.
type IncidentUpdate struct {
	ID         string         `json:"id"`
	IncidentID string         `json:"incident_id"`
	Status     IncidentStatus `json:"status"`
	Message    string         `json:"message"`
	CreatedAt  time.Time      `json:"created_at"`
}
