package uptime

import (
	"context"
	"fmt"
	"time"

	"github.com/statuspulse/statuspulse/internal/domain"
)

// ServiceReader fetches a service scoped to an organization. Implemented by
// the catalog module.
type ServiceReader interface {
	GetService(ctx context.Context, orgID, serviceID string) (*domain.Service, error)
}

// Service exposes the uptime read and trigger operations consumed by the
// HTTP layer.
type Service struct {
	repo       Repository
	prober     *Prober
	aggregator *Aggregator
	services   ServiceReader
}

// NewService creates an uptime service.
func NewService(repo Repository, prober *Prober, aggregator *Aggregator, services ServiceReader) *Service {
	return &Service{
		repo:       repo,
		prober:     prober,
		aggregator: aggregator,
		services:   services,
	}
}

// TriggerCheck starts an asynchronous probe of the service. It reports
// whether a probe was started; false means one was already in flight.
func (s *Service) TriggerCheck(ctx context.Context, orgID, serviceID string) (bool, error) {
	svc, err := s.services.GetService(ctx, orgID, serviceID)
	if err != nil {
		return false, err
	}
	if !svc.IsMonitored() {
		return false, ErrNotMonitored
	}

	return s.prober.TryProbeAsync(ctx, svc), nil
}

// TrailingReport is the metrics-read payload for a trailing window.
// Monitored is false when the service has no endpoint, in which case no
// metrics exist at all; a monitored service with zero checks yields
// metrics with ChecksCount 0 and nil uptime.
type TrailingReport struct {
	ServiceID string           `json:"service_id"`
	Monitored bool             `json:"monitored"`
	Metrics   *TrailingMetrics `json:"metrics,omitempty"`
}

// TrailingMetrics returns the trailing-window aggregate for a service of
// the organization.
func (s *Service) TrailingMetrics(ctx context.Context, orgID, serviceID string, period TrailingPeriod) (*TrailingReport, error) {
	svc, err := s.services.GetService(ctx, orgID, serviceID)
	if err != nil {
		return nil, err
	}

	report := &TrailingReport{ServiceID: svc.ID, Monitored: svc.IsMonitored()}
	if !report.Monitored {
		return report, nil
	}

	metrics, err := s.aggregator.TrailingWindow(ctx, svc.ID, period)
	if err != nil {
		return nil, err
	}
	report.Metrics = metrics

	return report, nil
}

// Rollups returns the stored rollups of one period covering the last
// `days` days for a service of the organization.
func (s *Service) Rollups(ctx context.Context, orgID, serviceID string, period domain.RollupPeriod, days int) ([]domain.UptimeRollup, error) {
	if !period.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	if days <= 0 {
		days = 30
	}

	svc, err := s.services.GetService(ctx, orgID, serviceID)
	if err != nil {
		return nil, err
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.repo.ListRollups(ctx, svc.ID, period, since)
}
