package domain

import "time"

// ServiceStatus represents the operational status of a service.
type ServiceStatus string

// Service statuses.
const (
	ServiceStatusOperational   ServiceStatus = "operational"
	ServiceStatusDegraded      ServiceStatus = "degraded"
	ServiceStatusPartialOutage ServiceStatus = "partial_outage"
	ServiceStatusMajorOutage   ServiceStatus = "major_outage"
	ServiceStatusMaintenance   ServiceStatus = "maintenance"
)

// IsValid checks if the service status is valid.
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusOperational, ServiceStatusDegraded,
		ServiceStatusPartialOutage, ServiceStatusMajorOutage,
		ServiceStatusMaintenance:
		return true
	}
	return false
}

// Service represents one entry on an organization's status page. A service
// with an endpoint URL is probed by the uptime monitor; one without is
// status-managed by operators only.
type Service struct {
	ID          string        `json:"id"`
	OrgID       string        `json:"org_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ServiceStatus `json:"status"`
	EndpointURL *string       `json:"endpoint_url,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsMonitored returns true if the service has a probe endpoint configured.
func (s *Service) IsMonitored() bool {
	return s.EndpointURL != nil && *s.EndpointURL != ""
}
