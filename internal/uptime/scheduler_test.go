package uptime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuspulse/statuspulse/internal/domain"
)

func TestWindowsDue_SameDay(t *testing.T) {
	prev := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)

	assert.Empty(t, windowsDue(prev, now))
}

func TestWindowsDue_MidnightCompletesDaily(t *testing.T) {
	prev := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC) // Monday
	now := time.Date(2026, 9, 1, 0, 1, 0, 0, time.UTC)

	windows := windowsDue(prev, now)
	require.Len(t, windows, 2)

	assert.Equal(t, domain.RollupPeriodDaily, windows[0].period)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), windows[0].start)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), windows[0].end)

	// September 1st also completes the August monthly window.
	assert.Equal(t, domain.RollupPeriodMonthly, windows[1].period)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), windows[1].start)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), windows[1].end)
}

func TestWindowsDue_PlainWeekday(t *testing.T) {
	prev := time.Date(2026, 9, 1, 23, 59, 0, 0, time.UTC) // Tuesday
	now := time.Date(2026, 9, 2, 0, 1, 0, 0, time.UTC)

	windows := windowsDue(prev, now)
	require.Len(t, windows, 1)
	assert.Equal(t, domain.RollupPeriodDaily, windows[0].period)
}

func TestWindowsDue_SundayCompletesWeekly(t *testing.T) {
	prev := time.Date(2026, 8, 29, 23, 59, 0, 0, time.UTC) // Saturday
	now := time.Date(2026, 8, 30, 0, 1, 0, 0, time.UTC)    // Sunday

	windows := windowsDue(prev, now)
	require.Len(t, windows, 2)

	assert.Equal(t, domain.RollupPeriodDaily, windows[0].period)
	assert.Equal(t, domain.RollupPeriodWeekly, windows[1].period)
	assert.Equal(t, time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), windows[1].start)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), windows[1].end)
}

func TestWindowsDue_SundayFirstOfMonth(t *testing.T) {
	prev := time.Date(2025, 5, 31, 23, 59, 0, 0, time.UTC) // Saturday
	now := time.Date(2025, 6, 1, 0, 1, 0, 0, time.UTC)     // Sunday the 1st

	windows := windowsDue(prev, now)
	require.Len(t, windows, 3)

	periods := []domain.RollupPeriod{windows[0].period, windows[1].period, windows[2].period}
	assert.Equal(t, []domain.RollupPeriod{
		domain.RollupPeriodDaily,
		domain.RollupPeriodWeekly,
		domain.RollupPeriodMonthly,
	}, periods)

	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), windows[2].start)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), windows[2].end)
}

func TestSchedulerComputesRollupsForMonitoredServices(t *testing.T) {
	endpoint := "http://svc.internal/health"
	avg := 40
	repo := newMockRepository()
	repo.services = []domain.Service{
		{ID: "svc-1", OrgID: "org-1", Status: domain.ServiceStatusOperational, EndpointURL: &endpoint},
		{ID: "svc-2", OrgID: "org-1", Status: domain.ServiceStatusOperational, EndpointURL: &endpoint},
	}
	repo.windowStats = WindowStats{Total: 10, UpCount: 10, AvgResponseTimeMs: &avg}

	agg := NewAggregator(repo, time.Minute)
	sched := NewScheduler(nil, agg, repo, time.Minute)

	prev := time.Date(2026, 9, 1, 23, 59, 0, 0, time.UTC)
	now := time.Date(2026, 9, 2, 0, 1, 0, 0, time.UTC)
	sched.computeDueRollups(context.Background(), prev, now)

	require.Len(t, repo.rollups, 2)
	for _, rollup := range repo.rollups {
		assert.Equal(t, domain.RollupPeriodDaily, rollup.Period)
		require.NotNil(t, rollup.Uptime)
		assert.Equal(t, 100.0, *rollup.Uptime)
	}
}
