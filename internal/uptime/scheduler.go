package uptime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/statuspulse/statuspulse/internal/domain"
)

// Scheduler drives the monitoring loop: a probe sweep every interval, and
// rollup computation whenever a day, week or month boundary has been
// crossed since the previous tick.
type Scheduler struct {
	prober     *Prober
	aggregator *Aggregator
	repo       Repository
	interval   time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler.
func NewScheduler(prober *Prober, aggregator *Aggregator, repo Repository, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		prober:     prober,
		aggregator: aggregator,
		repo:       repo,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the monitoring loop.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("starting uptime scheduler", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("uptime scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := time.Now().UTC()
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := time.Now().UTC()
			s.sweep(ctx)
			s.computeDueRollups(ctx, last, now)
			last = now
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if err := s.prober.ProbeAll(ctx); err != nil && ctx.Err() == nil {
		slog.Error("probe sweep failed", "error", err)
	}
}

// computeDueRollups computes the rollup windows completed between prev and
// now for every monitored service.
func (s *Scheduler) computeDueRollups(ctx context.Context, prev, now time.Time) {
	windows := windowsDue(prev, now)
	if len(windows) == 0 {
		return
	}

	services, err := s.repo.ListMonitoredServices(ctx)
	if err != nil {
		slog.Error("list monitored services for rollups", "error", err)
		return
	}

	for _, w := range windows {
		for _, svc := range services {
			rollup, err := s.aggregator.ComputeRollup(ctx, svc.ID, w.period, w.start, w.end)
			if err != nil {
				slog.Error("compute rollup",
					"service_id", svc.ID,
					"period", w.period,
					"error", err,
				)
				continue
			}
			slog.Info("rollup computed",
				"service_id", svc.ID,
				"period", w.period,
				"window_start", w.start,
				"checks", rollup.ChecksCount,
			)
		}
	}
}

type rollupWindow struct {
	period domain.RollupPeriod
	start  time.Time
	end    time.Time
}

// windowsDue returns the rollup windows completed between prev and now:
// crossing midnight completes a daily window, Sunday midnight a weekly
// window and the first of the month the previous calendar month.
func windowsDue(prev, now time.Time) []rollupWindow {
	prevDay := startOfDayUTC(prev)
	day := startOfDayUTC(now)
	if !day.After(prevDay) {
		return nil
	}

	end := day
	windows := []rollupWindow{
		{period: domain.RollupPeriodDaily, start: end.AddDate(0, 0, -1), end: end},
	}

	if end.Weekday() == time.Sunday {
		windows = append(windows, rollupWindow{
			period: domain.RollupPeriodWeekly,
			start:  end.AddDate(0, 0, -7),
			end:    end,
		})
	}

	if end.Day() == 1 {
		windows = append(windows, rollupWindow{
			period: domain.RollupPeriodMonthly,
			start:  end.AddDate(0, -1, 0),
			end:    end,
		})
	}

	return windows
}

func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
