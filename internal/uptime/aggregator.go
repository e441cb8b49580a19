package uptime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/pkg/metrics"
)

// TrailingPeriod selects a window relative to now for read-path metrics.
type TrailingPeriod string

// Trailing periods.
const (
	Trailing24h TrailingPeriod = "24h"
	Trailing7d  TrailingPeriod = "7d"
	Trailing30d TrailingPeriod = "30d"
)

// Duration returns the window length for the trailing period.
func (p TrailingPeriod) Duration() (time.Duration, error) {
	switch p {
	case Trailing24h:
		return 24 * time.Hour, nil
	case Trailing7d:
		return 7 * 24 * time.Hour, nil
	case Trailing30d:
		return 30 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
}

// TrailingMetrics is the read-path aggregate over a trailing window. It is
// computed at query time and never persisted. Uptime and AvgResponseTimeMs
// are nil when the window holds no checks: "no data" is not "0% uptime".
type TrailingMetrics struct {
	Period            TrailingPeriod `json:"period"`
	WindowStart       time.Time      `json:"window_start"`
	WindowEnd         time.Time      `json:"window_end"`
	Uptime            *float64       `json:"uptime"`
	AvgResponseTimeMs *int           `json:"avg_response_time_ms"`
	ChecksCount       int            `json:"checks_count"`
	DowntimeMinutes   int            `json:"downtime_minutes"`
}

// Aggregator turns raw check records into rollup statistics. Downtime is
// interval-based: each down check accounts for one probe interval.
type Aggregator struct {
	repo          Repository
	probeInterval time.Duration
}

// NewAggregator creates an aggregator. probeInterval is the configured
// probe cadence used for downtime attribution.
func NewAggregator(repo Repository, probeInterval time.Duration) *Aggregator {
	if probeInterval <= 0 {
		probeInterval = time.Minute
	}
	return &Aggregator{repo: repo, probeInterval: probeInterval}
}

// ComputeRollup aggregates the service's checks over [start, end) and
// upserts the resulting rollup. The returned rollup carries the identity
// of the stored row, so recomputing over unchanged data returns the same
// value; concurrent recomputation is last-write-wins, which is safe
// because a rollup is a pure derived value.
func (a *Aggregator) ComputeRollup(ctx context.Context, serviceID string, period domain.RollupPeriod, start, end time.Time) (*domain.UptimeRollup, error) {
	if !period.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	if !end.After(start) {
		return nil, ErrInvalidWindow
	}

	stats, err := a.repo.WindowStats(ctx, serviceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("window stats: %w", err)
	}

	now := time.Now().UTC()
	rollup := &domain.UptimeRollup{
		ID:          uuid.NewString(),
		ServiceID:   serviceID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Period:      period,
		WindowStart: start,
		WindowEnd:   end,
	}
	a.fill(rollup, stats)

	if err := a.repo.UpsertRollup(ctx, rollup); err != nil {
		return nil, fmt.Errorf("upsert rollup: %w", err)
	}

	metrics.RollupRuns.WithLabelValues(string(period)).Inc()
	return rollup, nil
}

// TrailingWindow aggregates the service's checks over [now-d, now) without
// persisting anything. Concurrent probe writes landing inside the window
// are tolerated; the result is eventually consistent.
func (a *Aggregator) TrailingWindow(ctx context.Context, serviceID string, period TrailingPeriod) (*TrailingMetrics, error) {
	d, err := period.Duration()
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	start := end.Add(-d)

	stats, err := a.repo.WindowStats(ctx, serviceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("window stats: %w", err)
	}

	tm := &TrailingMetrics{
		Period:      period,
		WindowStart: start,
		WindowEnd:   end,
	}
	tm.ChecksCount = stats.Total
	tm.AvgResponseTimeMs = stats.AvgResponseTimeMs
	tm.Uptime = uptimePercent(stats)
	tm.DowntimeMinutes = a.downtimeMinutes(stats)

	return tm, nil
}

func (a *Aggregator) fill(rollup *domain.UptimeRollup, stats WindowStats) {
	rollup.ChecksCount = stats.Total
	rollup.AvgResponseTimeMs = stats.AvgResponseTimeMs
	rollup.Uptime = uptimePercent(stats)
	rollup.DowntimeMinutes = a.downtimeMinutes(stats)
}

// uptimePercent returns nil for an empty window: no data is distinct from
// every check failing.
func uptimePercent(stats WindowStats) *float64 {
	if stats.Total == 0 {
		return nil
	}
	pct := float64(stats.UpCount) / float64(stats.Total) * 100
	return &pct
}

func (a *Aggregator) downtimeMinutes(stats WindowStats) int {
	down := stats.Total - stats.UpCount
	return int(float64(down) * a.probeInterval.Minutes())
}
