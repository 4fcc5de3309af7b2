package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenLogCounter counts incident logs that are still open across all companies.
type OpenLogCounter interface {
	CountOpenLogs(ctx context.Context) (int, error)
}

// RecordDBPoolMetrics updates database pool metrics.
func RecordDBPoolMetrics(pool *pgxpool.Pool) {
	stats := pool.Stat()

	DBPoolConnections.WithLabelValues("in_use").Set(float64(stats.AcquiredConns()))
	DBPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
	DBPoolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))
}

// RecordOpenIncidents sets the open incidents gauge from the stored logs.
// The gauge keeps its previous value when the query fails.
func RecordOpenIncidents(ctx context.Context, counter OpenLogCounter) error {
	count, err := counter.CountOpenLogs(ctx)
	if err != nil {
		return err
	}
	OpenIncidents.Set(float64(count))
	return nil
}

// CollectDBMetrics records pool and open incident metrics immediately and then
// on every tick until ctx is cancelled. counter may be nil.
func CollectDBMetrics(ctx context.Context, pool *pgxpool.Pool, counter OpenLogCounter, interval time.Duration) {
	record := func() {
		RecordDBPoolMetrics(pool)
		if counter == nil {
			return
		}
		if err := RecordOpenIncidents(ctx, counter); err != nil && ctx.Err() == nil {
			slog.Warn("failed to count open incidents", "error", err)
		}
	}
	record()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			record()
		case <-ctx.Done():
			return
		}
	}
}
