package uptime

import (
	"context"
	"time"

	"github.com/statuspulse/statuspulse/internal/domain"
)

// WindowStats is the raw aggregate over one check window. AvgResponseTimeMs
// averages only checks that carry a latency (failed checks have none) and is
// nil when no such check exists.
type WindowStats struct {
	Total             int
	UpCount           int
	AvgResponseTimeMs *int
}

// Repository defines the storage operations of the uptime monitor.
type Repository interface {
	// InsertCheck appends one immutable check record.
	InsertCheck(ctx context.Context, check *domain.UptimeCheck) error

	// WindowStats aggregates checks of a service with checked_at in
	// [start, end). Selection is by the record's own timestamp, never by
	// insertion order.
	WindowStats(ctx context.Context, serviceID string, start, end time.Time) (WindowStats, error)

	// UpsertRollup stores a rollup keyed by (service, period,
	// window_start, window_end). An existing row keeps its id and
	// created_at, and keeps updated_at when the derived stats are
	// unchanged; the stored identity is written back into rollup so the
	// caller always holds the row as persisted.
	UpsertRollup(ctx context.Context, rollup *domain.UptimeRollup) error

	// ListRollups returns stored rollups of one period whose window starts
	// at or after since, oldest first.
	ListRollups(ctx context.Context, serviceID string, period domain.RollupPeriod, since time.Time) ([]domain.UptimeRollup, error)

	// ListMonitoredServices returns every service, across all
	// organizations, that has an endpoint URL configured.
	ListMonitoredServices(ctx context.Context) ([]domain.Service, error)

	// UpdateServiceStatus sets a service's status. Used for automatic
	// transitions driven by probe outcomes.
	UpdateServiceStatus(ctx context.Context, serviceID string, status domain.ServiceStatus) error

	// ActiveIncidentCount counts unresolved incidents affecting a service.
	ActiveIncidentCount(ctx context.Context, serviceID string) (int, error)
}
