// Package metrics exposes Prometheus instrumentation for reconciliation runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instruments the API layer records into.
type Metrics struct {
	RunsTotal      prometheus.Counter
	RunDuration    prometheus.Histogram
	PendingDays    prometheus.Gauge
	AnomalousCells prometheus.Gauge
	GridCells      prometheus.Gauge
}

// New registers and returns the metric set. Call once per process.
func New() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attendance_reconciliation_runs_total",
			Help: "Number of reconciliation runs executed.",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attendance_reconciliation_run_duration_seconds",
			Help:    "Wall time of a full reconciliation run.",
			Buckets: prometheus.DefBuckets,
		}),
		PendingDays: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_pending_days",
			Help: "Unresolved chargeable days in the latest run.",
		}),
		AnomalousCells: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_anomalous_cells",
			Help: "Worked-hours cells flagged anomalous in the latest run.",
		}),
		GridCells: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_grid_cells",
			Help: "Total cells in the latest status grid.",
		}),
	}
}
