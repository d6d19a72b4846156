package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace prefixes every metric name
const Namespace = "socialgraph"

// Registry holds all metrics for the application
type Registry struct {
	// Analysis Metrics
	AnalysisRunsTotal      *prometheus.CounterVec
	StageDuration          *prometheus.HistogramVec
	GraphNodes             prometheus.Gauge
	GraphEdges             prometheus.Gauge
	Communities            prometheus.Gauge
	Modularity             prometheus.Gauge
	BridgingUndefinedNodes prometheus.Gauge

	// Input Metrics
	InputRowsTotal   *prometheus.CounterVec
	InputRowsSkipped *prometheus.CounterVec

	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// System Metrics
	UptimeSeconds prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
	mu        sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry:  reg,
		startTime: time.Now(),
	}

	// Initialize all metrics
	r.initAnalysisMetrics()
	r.initInputMetrics()
	r.initAPIMetrics()
	r.initSystemMetrics()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
