package domain

import "time"

// CheckOutcome is the result of a single probe.
type CheckOutcome string

// Check outcomes.
const (
	CheckOutcomeUp   CheckOutcome = "up"
	CheckOutcomeDown CheckOutcome = "down"
)

// UptimeCheck is one immutable probe observation. Rows are append-only;
// nothing ever mutates a check after it is written.
type UptimeCheck struct {
	ID             string       `json:"id"`
	ServiceID      string       `json:"service_id"`
	Outcome        CheckOutcome `json:"outcome"`
	ResponseTimeMs *int         `json:"response_time_ms,omitempty"`
	CheckedAt      time.Time    `json:"checked_at"`
}

// RollupPeriod is the granularity of a persisted uptime rollup.
type RollupPeriod string

// Rollup periods.
const (
	RollupPeriodDaily   RollupPeriod = "daily"
	RollupPeriodWeekly  RollupPeriod = "weekly"
	RollupPeriodMonthly RollupPeriod = "monthly"
)

// IsValid checks if the rollup period is valid.
func (p RollupPeriod) IsValid() bool {
	return p == RollupPeriodDaily || p == RollupPeriodWeekly || p == RollupPeriodMonthly
}

// UptimeRollup aggregates the checks of one service over one window.
// Uptime is nil when the window contains no checks, which is distinct from
// an uptime of zero. Rollups are upserted by (service, period, window) and
// are pure derived values; recomputation overwrites in place.
type UptimeRollup struct {
	ID                string       `json:"id"`
	ServiceID         string       `json:"service_id"`
	Period            RollupPeriod `json:"period"`
	WindowStart       time.Time    `json:"window_start"`
	WindowEnd         time.Time    `json:"window_end"`
	Uptime            *float64     `json:"uptime"`
	AvgResponseTimeMs *int         `json:"avg_response_time_ms"`
	ChecksCount       int          `json:"checks_count"`
	DowntimeMinutes   int          `json:"downtime_minutes"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
