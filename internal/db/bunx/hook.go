package bunx

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/uptrace/bun"

	"github.com/palisadehq/palisade/internal/telemetry"
)

// metricsHook records query counts, latency, and errors for every
// statement the ORM executes. Instruments register against the global
// meter provider, so the hook records nothing until telemetry.Init runs.
type metricsHook struct {
	metrics *telemetry.DatabaseMetrics
}

func attachQueryMetrics(db *bun.DB) {
	metrics, err := telemetry.NewDatabaseMetrics()
	if err != nil {
		log.Printf("WARNING: database metrics disabled: %v", err)
		return
	}
	db.AddQueryHook(&metricsHook{metrics: metrics})
}

func (h *metricsHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *metricsHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	durationMs := float64(time.Since(event.StartTime).Microseconds()) / 1000.0

	err := event.Err
	if errors.Is(err, sql.ErrNoRows) {
		// Row misses are routine lookups, not query failures.
		err = nil
	}
	h.metrics.RecordQuery(ctx, event.Operation(), durationMs, err)
}
