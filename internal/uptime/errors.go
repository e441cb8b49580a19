package uptime

import "errors"

// Sentinel errors for the uptime module.
var (
	ErrNotMonitored  = errors.New("service has no endpoint configured")
	ErrInvalidPeriod = errors.New("invalid rollup period")
	ErrInvalidWindow = errors.New("window end must be after window start")
	ErrProbeInFlight = errors.New("probe already in flight for service")
)
