package uptime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statuspulse/statuspulse/internal/domain"
)

func TestComputeRollup_AllUp(t *testing.T) {
	avg := 120
	repo := newMockRepository()
	repo.windowStats = WindowStats{Total: 1440, UpCount: 1440, AvgResponseTimeMs: &avg}

	agg := NewAggregator(repo, time.Minute)

	start := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	rollup, err := agg.ComputeRollup(context.Background(), "svc-1", domain.RollupPeriodDaily, start, end)

	require.NoError(t, err)
	require.NotNil(t, rollup.Uptime)
	assert.Equal(t, 100.0, *rollup.Uptime)
	assert.Equal(t, 1440, rollup.ChecksCount)
	assert.Equal(t, 0, rollup.DowntimeMinutes)
	require.NotNil(t, rollup.AvgResponseTimeMs)
	assert.Equal(t, 120, *rollup.AvgResponseTimeMs)
	assert.NotEmpty(t, rollup.ID)

	require.Len(t, repo.rollups, 1)
	stored := repo.rollups[0]
	assert.Equal(t, start, stored.WindowStart)
	assert.Equal(t, end, stored.WindowEnd)
	assert.Equal(t, domain.RollupPeriodDaily, stored.Period)
}

func TestComputeRollup_EmptyWindow(t *testing.T) {
	repo := newMockRepository()
	repo.windowStats = WindowStats{}

	agg := NewAggregator(repo, time.Minute)

	start := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	rollup, err := agg.ComputeRollup(context.Background(), "svc-1", domain.RollupPeriodDaily, start, start.AddDate(0, 0, 1))

	require.NoError(t, err)
	assert.Nil(t, rollup.Uptime, "no checks means no uptime figure, not zero")
	assert.Nil(t, rollup.AvgResponseTimeMs)
	assert.Equal(t, 0, rollup.ChecksCount)
	assert.Equal(t, 0, rollup.DowntimeMinutes)
}

func TestComputeRollup_DowntimeFromInterval(t *testing.T) {
	repo := newMockRepository()
	repo.windowStats = WindowStats{Total: 60, UpCount: 55}

	agg := NewAggregator(repo, time.Minute)

	start := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	rollup, err := agg.ComputeRollup(context.Background(), "svc-1", domain.RollupPeriodDaily, start, start.AddDate(0, 0, 1))

	require.NoError(t, err)
	require.NotNil(t, rollup.Uptime)
	assert.InDelta(t, 91.666, *rollup.Uptime, 0.01)
	assert.Equal(t, 5, rollup.DowntimeMinutes, "each down check accounts for one probe interval")
}

func TestComputeRollup_RecomputeUnchanged(t *testing.T) {
	avg := 110
	repo := newMockRepository()
	repo.windowStats = WindowStats{Total: 24, UpCount: 20, AvgResponseTimeMs: &avg}

	agg := NewAggregator(repo, time.Minute)

	start := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	first, err := agg.ComputeRollup(context.Background(), "svc-1", domain.RollupPeriodDaily, start, end)
	require.NoError(t, err)

	second, err := agg.ComputeRollup(context.Background(), "svc-1", domain.RollupPeriodDaily, start, end)
	require.NoError(t, err)

	assert.Equal(t, first, second, "recomputing over unchanged checks must reproduce the stored rollup")
	assert.Len(t, repo.rollups, 1, "recomputation must not accumulate rows")
}

func TestComputeRollup_RecomputeChangedKeepsIdentity(t *testing.T) {
	repo := newMockRepository()
	repo.windowStats = WindowStats{Total: 24, UpCount: 20}

	agg := NewAggregator(repo, time.Minute)

	start := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	first, err := agg.ComputeRollup(context.Background(), "svc-1", domain.RollupPeriodDaily, start, end)
	require.NoError(t, err)

	// Late-arriving checks change the window's contents.
	repo.windowStats = WindowStats{Total: 30, UpCount: 26}

	second, err := agg.ComputeRollup(context.Background(), "svc-1", domain.RollupPeriodDaily, start, end)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 30, second.ChecksCount)
	assert.Len(t, repo.rollups, 1)
}

func TestTrailingWindowCountsAreMonotonic(t *testing.T) {
	now := time.Now().UTC()
	checkTimes := make([]time.Time, 0, 15)
	for i := 0; i < 5; i++ {
		checkTimes = append(checkTimes, now.Add(-time.Duration(i+1)*time.Hour))
	}
	for i := 0; i < 10; i++ {
		checkTimes = append(checkTimes, now.AddDate(0, 0, -2).Add(-time.Duration(i)*12*time.Hour))
	}

	repo := newMockRepository()
	repo.windowStatsFn = func(_ string, start, end time.Time) WindowStats {
		var stats WindowStats
		for _, at := range checkTimes {
			if !at.Before(start) && at.Before(end) {
				stats.Total++
				stats.UpCount++
			}
		}
		return stats
	}

	agg := NewAggregator(repo, time.Minute)

	day, err := agg.TrailingWindow(context.Background(), "svc-1", Trailing24h)
	require.NoError(t, err)
	week, err := agg.TrailingWindow(context.Background(), "svc-1", Trailing7d)
	require.NoError(t, err)
	month, err := agg.TrailingWindow(context.Background(), "svc-1", Trailing30d)
	require.NoError(t, err)

	assert.Equal(t, 5, day.ChecksCount)
	assert.Equal(t, 15, week.ChecksCount)
	assert.Equal(t, 15, month.ChecksCount)
	assert.GreaterOrEqual(t, week.ChecksCount, day.ChecksCount,
		"a window contains every check of a window it fully covers")
	assert.GreaterOrEqual(t, month.ChecksCount, week.ChecksCount)
}

func TestComputeRollup_InvalidPeriod(t *testing.T) {
	agg := NewAggregator(newMockRepository(), time.Minute)

	start := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	_, err := agg.ComputeRollup(context.Background(), "svc-1", "hourly", start, start.Add(time.Hour))

	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestComputeRollup_InvalidWindow(t *testing.T) {
	agg := NewAggregator(newMockRepository(), time.Minute)

	start := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	_, err := agg.ComputeRollup(context.Background(), "svc-1", domain.RollupPeriodDaily, start, start)

	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestTrailingWindow(t *testing.T) {
	avg := 85
	repo := newMockRepository()
	repo.windowStats = WindowStats{Total: 100, UpCount: 90, AvgResponseTimeMs: &avg}

	agg := NewAggregator(repo, time.Minute)

	tm, err := agg.TrailingWindow(context.Background(), "svc-1", Trailing24h)

	require.NoError(t, err)
	assert.Equal(t, Trailing24h, tm.Period)
	assert.Equal(t, 24*time.Hour, tm.WindowEnd.Sub(tm.WindowStart))
	require.NotNil(t, tm.Uptime)
	assert.InDelta(t, 90.0, *tm.Uptime, 0.001)
	assert.Equal(t, 100, tm.ChecksCount)
	assert.Equal(t, 10, tm.DowntimeMinutes)
	require.NotNil(t, tm.AvgResponseTimeMs)
	assert.Equal(t, 85, *tm.AvgResponseTimeMs)

	assert.Empty(t, repo.rollups, "trailing metrics are never persisted")
}

func TestTrailingWindow_InvalidPeriod(t *testing.T) {
	agg := NewAggregator(newMockRepository(), time.Minute)

	_, err := agg.TrailingWindow(context.Background(), "svc-1", "48h")

	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestTrailingPeriodDuration(t *testing.T) {
	for period, want := range map[TrailingPeriod]time.Duration{
		Trailing24h: 24 * time.Hour,
		Trailing7d:  7 * 24 * time.Hour,
		Trailing30d: 30 * 24 * time.Hour,
	} {
		d, err := period.Duration()
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}
}
