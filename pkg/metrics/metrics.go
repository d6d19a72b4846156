package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes recorded by RecordRun
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// All Record and Set helpers are no-ops on a nil *Registry, so callers can
// run without metrics.

// RecordRun counts a finished analysis run
func (r *Registry) RecordRun(status string) {
	if r == nil {
		return
	}
	r.AnalysisRunsTotal.WithLabelValues(status).Inc()
}

// RecordStage records how long an analysis stage took
func (r *Registry) RecordStage(stage string, duration time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// SetGraphSize publishes the size of the loaded graph
func (r *Registry) SetGraphSize(nodes, edges int) {
	if r == nil {
		return
	}
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
}

// RecordInputRows adds n rows read from table
func (r *Registry) RecordInputRows(table string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.InputRowsTotal.WithLabelValues(table).Add(float64(n))
}

// RecordSkippedRows adds n rows of table dropped for reason
func (r *Registry) RecordSkippedRows(table, reason string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.InputRowsSkipped.WithLabelValues(table, reason).Add(float64(n))
}

// SetCommunities publishes the outcome of community detection
func (r *Registry) SetCommunities(count int, modularity float64) {
	if r == nil {
		return
	}
	r.Communities.Set(float64(count))
	r.Modularity.Set(modularity)
}

// SetBridgingUndefined publishes the number of undefined bridging coefficients
func (r *Registry) SetBridgingUndefined(n int) {
	if r == nil {
		return
	}
	r.BridgingUndefinedNodes.Set(float64(n))
}

// RecordAPIRequest records an API request with its duration
func (r *Registry) RecordAPIRequest(operation, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.APIRequestsTotal.WithLabelValues(operation, status).Inc()
	r.APIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateUptime refreshes the uptime gauge
func (r *Registry) UpdateUptime() {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
}

// Gatherer exposes the registry for scraping and text export
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

// WriteTextfile writes the current metrics for node_exporter's textfile
// collector. The file is written atomically.
func (r *Registry) WriteTextfile(path string) error {
	r.UpdateUptime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
