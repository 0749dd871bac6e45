package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/metrics"
)

// Metrics records request counts and latency labelled by the chi route
// pattern, so /repair-jobs/{jobId} stays one series.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrap(w, r)
			next.ServeHTTP(ww, r)
			m.Observe(r.Method, routePattern(r), statusOf(ww), time.Since(start))
		})
	}
}
