package incidents

import "errors"

// Incidents module errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrInvalidType      = errors.New("invalid incident type")
	ErrInvalidStatus    = errors.New("invalid status for incident type")
	ErrIncidentResolved = errors.New("incident already resolved")
	ErrServiceNotInOrg  = errors.New("service does not belong to the organization")
)
