package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/palisadehq/palisade/internal/telemetry"
)

// RequestMetrics records request count, latency and 5xx errors per route.
// A nil metrics struct (instrument construction failed at startup) makes
// this a pass-through.
func RequestMetrics(metrics *telemetry.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			metrics.ConnectionOpened(r.Context())
			defer metrics.ConnectionClosed(r.Context())

			next.ServeHTTP(ww, r)

			// The route pattern keeps cardinality bounded; raw paths would
			// mint a metric series per user-supplied identifier.
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			durationMs := float64(time.Since(start).Microseconds()) / 1000.0
			metrics.RecordRequest(r.Context(), r.Method, route, strconv.Itoa(ww.Status()), durationMs)
		})
	}
}
