package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsRecorder receives one observation per request. It is satisfied by
// *metrics.Registry.
type MetricsRecorder interface {
	RecordAPIRequest(operation, status string, duration time.Duration)
}

// Metrics records every request under the route path and status code.
// A nil recorder disables recording.
func Metrics(recorder MetricsRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recorder == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)
			recorder.RecordAPIRequest(r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
		})
	}
}
