package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// SnapshotDBPool copies the current pgx pool statistics into the
// DBPoolConnections gauge. It is cheap and safe to call from a ticker.
func SnapshotDBPool(pool *pgxpool.Pool) {
	stats := pool.Stat()

	DBPoolConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))
}
