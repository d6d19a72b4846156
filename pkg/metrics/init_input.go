package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initInputMetrics() {
	r.InputRowsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "input_rows_total",
			Help:      "Rows read from input tables",
		},
		[]string{"table"},
	)

	r.InputRowsSkipped = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "input_rows_skipped_total",
			Help:      "Input rows that did not contribute to the graph",
		},
		[]string{"table", "reason"},
	)
}
