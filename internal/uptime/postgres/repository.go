// Package postgres provides PostgreSQL implementation of the uptime repository.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/uptime"
)

// Repository implements the uptime.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertCheck appends one check record.
func (r *Repository) InsertCheck(ctx context.Context, check *domain.UptimeCheck) error {
	query := `
		INSERT INTO uptime_checks (id, service_id, outcome, response_time_ms, checked_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		check.ID,
		check.ServiceID,
		check.Outcome,
		check.ResponseTimeMs,
		check.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("insert uptime check: %w", err)
	}
	return nil
}

// WindowStats aggregates checks of a service with checked_at in [start, end).
// The latency average covers only checks that recorded one.
func (r *Repository) WindowStats(ctx context.Context, serviceID string, start, end time.Time) (uptime.WindowStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = 'up'),
			AVG(response_time_ms) FILTER (WHERE response_time_ms IS NOT NULL)
		FROM uptime_checks
		WHERE service_id = $1 AND checked_at >= $2 AND checked_at < $3
	`
	var stats uptime.WindowStats
	var avg *float64
	err := r.db.QueryRow(ctx, query, serviceID, start, end).Scan(&stats.Total, &stats.UpCount, &avg)
	if err != nil {
		return uptime.WindowStats{}, fmt.Errorf("window stats: %w", err)
	}

	if avg != nil {
		rounded := int(*avg + 0.5)
		stats.AvgResponseTimeMs = &rounded
	}

	return stats, nil
}

// UpsertRollup stores a rollup keyed by (service, period, window). An
// existing row keeps its id and created_at, and keeps updated_at when the
// derived stats did not change, so recomputation over unchanged data
// leaves the row untouched. The stored identity is scanned back into
// rollup.
func (r *Repository) UpsertRollup(ctx context.Context, rollup *domain.UptimeRollup) error {
	query := `
		INSERT INTO uptime_rollups
			(id, service_id, period, window_start, window_end, uptime, avg_response_time_ms, checks_count, downtime_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (service_id, period, window_start, window_end) DO UPDATE SET
			uptime = EXCLUDED.uptime,
			avg_response_time_ms = EXCLUDED.avg_response_time_ms,
			checks_count = EXCLUDED.checks_count,
			downtime_minutes = EXCLUDED.downtime_minutes,
			updated_at = CASE
				WHEN (uptime_rollups.uptime, uptime_rollups.avg_response_time_ms, uptime_rollups.checks_count, uptime_rollups.downtime_minutes)
					IS NOT DISTINCT FROM
					(EXCLUDED.uptime, EXCLUDED.avg_response_time_ms, EXCLUDED.checks_count, EXCLUDED.downtime_minutes)
				THEN uptime_rollups.updated_at
				ELSE EXCLUDED.updated_at
			END
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		rollup.ID,
		rollup.ServiceID,
		rollup.Period,
		rollup.WindowStart,
		rollup.WindowEnd,
		rollup.Uptime,
		rollup.AvgResponseTimeMs,
		rollup.ChecksCount,
		rollup.DowntimeMinutes,
		rollup.CreatedAt,
		rollup.UpdatedAt,
	).Scan(&rollup.ID, &rollup.CreatedAt, &rollup.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert rollup: %w", err)
	}
	return nil
}

// ListRollups returns stored rollups of one period whose window starts at
// or after since, oldest first.
func (r *Repository) ListRollups(ctx context.Context, serviceID string, period domain.RollupPeriod, since time.Time) ([]domain.UptimeRollup, error) {
	query := `
		SELECT id, service_id, period, window_start, window_end, uptime, avg_response_time_ms, checks_count, downtime_minutes, created_at, updated_at
		FROM uptime_rollups
		WHERE service_id = $1 AND period = $2 AND window_start >= $3
		ORDER BY window_start
	`
	rows, err := r.db.Query(ctx, query, serviceID, period, since)
	if err != nil {
		return nil, fmt.Errorf("list rollups: %w", err)
	}
	defer rows.Close()

	rollups := make([]domain.UptimeRollup, 0)
	for rows.Next() {
		var rollup domain.UptimeRollup
		err := rows.Scan(
			&rollup.ID,
			&rollup.ServiceID,
			&rollup.Period,
			&rollup.WindowStart,
			&rollup.WindowEnd,
			&rollup.Uptime,
			&rollup.AvgResponseTimeMs,
			&rollup.ChecksCount,
			&rollup.DowntimeMinutes,
			&rollup.CreatedAt,
			&rollup.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rollup: %w", err)
		}
		rollups = append(rollups, rollup)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rollups: %w", err)
	}

	return rollups, nil
}

// ListMonitoredServices returns every service with an endpoint configured,
// across all organizations.
func (r *Repository) ListMonitoredServices(ctx context.Context) ([]domain.Service, error) {
	query := `
		SELECT id, org_id, name, description, status, endpoint_url, created_at, updated_at
		FROM services
		WHERE endpoint_url IS NOT NULL AND endpoint_url <> ''
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list monitored services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	for rows.Next() {
		var service domain.Service
		err := rows.Scan(
			&service.ID,
			&service.OrgID,
			&service.Name,
			&service.Description,
			&service.Status,
			&service.EndpointURL,
			&service.CreatedAt,
			&service.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, service)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	return services, nil
}

// UpdateServiceStatus sets a service's status.
func (r *Repository) UpdateServiceStatus(ctx context.Context, serviceID string, status domain.ServiceStatus) error {
	query := `UPDATE services SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.Exec(ctx, query, status, serviceID); err != nil {
		return fmt.Errorf("update service status: %w", err)
	}
	return nil
}

// ActiveIncidentCount counts unresolved, non-scheduled incidents linked to
// a service.
func (r *Repository) ActiveIncidentCount(ctx context.Context, serviceID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM incidents i
		JOIN incident_services lnk ON lnk.incident_id = i.id
		WHERE lnk.service_id = $1
		  AND i.resolved_at IS NULL
		  AND i.status <> 'scheduled'
	`
	var count int
	if err := r.db.QueryRow(ctx, query, serviceID).Scan(&count); err != nil {
		return 0, fmt.Errorf("active incident count: %w", err)
	}
	return count, nil
}
