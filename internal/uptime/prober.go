// Package uptime implements the monitoring core: endpoint probing, check
// persistence and rollup aggregation.
package uptime

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/pkg/metrics"
	"github.com/statuspulse/statuspulse/internal/realtime"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Broadcaster publishes entity-change events to realtime subscribers.
type Broadcaster interface {
	Broadcast(evt realtime.Event)
}

// ProberConfig contains prober settings.
type ProberConfig struct {
	Timeout         time.Duration
	MaxConcurrent   int
	ProbesPerSecond float64
}

// Prober issues health-check requests against monitored endpoints and
// records exactly one check per attempt. Probe failures are data, not
// errors: every classification (timeout, refused connection, non-2xx/3xx
// status) becomes a "down" check. Only storage failures and caller
// cancellation propagate; a cancelled probe records nothing.
type Prober struct {
	repo        Repository
	broadcaster Broadcaster
	client      *http.Client
	limiter     *rate.Limiter
	maxParallel int

	// inFlight guards against overlapping probes of the same service,
	// which would double-count observations.
	inFlight sync.Map
}

// NewProber creates a prober.
func NewProber(cfg ProberConfig, repo Repository, broadcaster Broadcaster) *Prober {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxParallel := cfg.MaxConcurrent
	if maxParallel <= 0 {
		maxParallel = 8
	}
	perSecond := cfg.ProbesPerSecond
	if perSecond <= 0 {
		perSecond = 20
	}

	return &Prober{
		repo:        repo,
		broadcaster: broadcaster,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:     rate.NewLimiter(rate.Limit(perSecond), 1),
		maxParallel: maxParallel,
	}
}

// ProbeAll probes every monitored service concurrently. Individual probe
// outcomes never fail the sweep; only listing or persistence errors are
// returned.
func (p *Prober) ProbeAll(ctx context.Context) error {
	services, err := p.repo.ListMonitoredServices(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)

	for _, svc := range services {
		g.Go(func() error {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
			if _, err := p.ProbeService(ctx, &svc); err != nil && err != ErrProbeInFlight && ctx.Err() == nil {
				slog.Error("probe failed to record check",
					"service_id", svc.ID,
					"error", err,
				)
			}
			return nil
		})
	}

	return g.Wait()
}

// TryProbeAsync starts a probe for the service in the background unless one
// is already in flight. It reports whether a probe was started.
func (p *Prober) TryProbeAsync(ctx context.Context, svc *domain.Service) bool {
	if _, loaded := p.inFlight.LoadOrStore(svc.ID, struct{}{}); loaded {
		return false
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		defer p.inFlight.Delete(svc.ID)
		if _, err := p.probeLocked(bg, svc); err != nil {
			slog.Error("triggered probe failed to record check",
				"service_id", svc.ID,
				"error", err,
			)
		}
	}()

	return true
}

// ProbeService performs one probe cycle for the service and persists the
// resulting check. It returns ErrProbeInFlight when a concurrent cycle for
// the same service has not completed yet, and ErrNotMonitored when the
// service has no endpoint.
func (p *Prober) ProbeService(ctx context.Context, svc *domain.Service) (*domain.UptimeCheck, error) {
	if !svc.IsMonitored() {
		return nil, ErrNotMonitored
	}

	if _, loaded := p.inFlight.LoadOrStore(svc.ID, struct{}{}); loaded {
		return nil, ErrProbeInFlight
	}
	defer p.inFlight.Delete(svc.ID)

	return p.probeLocked(ctx, svc)
}

func (p *Prober) probeLocked(ctx context.Context, svc *domain.Service) (*domain.UptimeCheck, error) {
	outcome, latencyMs, err := p.probe(ctx, *svc.EndpointURL)
	if err != nil {
		return nil, err
	}

	check := &domain.UptimeCheck{
		ID:             uuid.NewString(),
		ServiceID:      svc.ID,
		Outcome:        outcome,
		ResponseTimeMs: latencyMs,
		CheckedAt:      time.Now().UTC(),
	}

	if err := p.repo.InsertCheck(ctx, check); err != nil {
		return nil, err
	}

	p.reconcileStatus(ctx, svc, outcome)

	return check, nil
}

// probe issues one GET and classifies the outcome. It always terminates
// within the client timeout. A request aborted by caller cancellation is
// not an observation; it returns the context error instead of an outcome.
func (p *Prober) probe(ctx context.Context, endpoint string) (domain.CheckOutcome, *int, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		metrics.ProbeDuration.WithLabelValues(string(domain.CheckOutcomeDown)).Observe(time.Since(start).Seconds())
		return domain.CheckOutcomeDown, nil, nil
	}
	req.Header.Set("User-Agent", "statuspulse-prober/1.0")

	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		// Timeout, refused connection, DNS failure: all just "down".
		metrics.ProbeDuration.WithLabelValues(string(domain.CheckOutcomeDown)).Observe(elapsed.Seconds())
		return domain.CheckOutcomeDown, nil, nil
	}
	defer resp.Body.Close()

	latency := int(elapsed.Milliseconds())
	outcome := domain.CheckOutcomeUp
	if resp.StatusCode >= 400 {
		outcome = domain.CheckOutcomeDown
	}
	metrics.ProbeDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())

	return outcome, &latency, nil
}

// reconcileStatus applies automatic status transitions after a probe: a
// down observation degrades an operational service to partial_outage, and
// an up observation restores operational status once no unresolved
// incidents touch the service. Reconciliation is best-effort; failures are
// logged and the check stands on its own.
func (p *Prober) reconcileStatus(ctx context.Context, svc *domain.Service, outcome domain.CheckOutcome) {
	var next domain.ServiceStatus

	switch {
	case outcome == domain.CheckOutcomeDown && svc.Status == domain.ServiceStatusOperational:
		next = domain.ServiceStatusPartialOutage
	case outcome == domain.CheckOutcomeUp && svc.Status != domain.ServiceStatusOperational:
		active, err := p.repo.ActiveIncidentCount(ctx, svc.ID)
		if err != nil {
			slog.Error("count active incidents", "service_id", svc.ID, "error", err)
			return
		}
		if active > 0 {
			return
		}
		next = domain.ServiceStatusOperational
	default:
		return
	}

	if err := p.repo.UpdateServiceStatus(ctx, svc.ID, next); err != nil {
		slog.Error("update service status", "service_id", svc.ID, "error", err)
		return
	}

	updated := *svc
	updated.Status = next
	updated.UpdatedAt = time.Now().UTC()

	if p.broadcaster != nil {
		p.broadcaster.Broadcast(realtime.Event{
			Type:  realtime.EventServiceUpdated,
			Data:  &updated,
			OrgID: svc.OrgID,
		})
	}

	slog.Info("service status reconciled",
		"service_id", svc.ID,
		"from", svc.Status,
		"to", next,
	)
}
