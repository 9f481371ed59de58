package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DatasetLoadOK    = "ok"
	DatasetLoadError = "error"
)

var (
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartmesh_resolutions_total",
			Help: "Total number of resolved chart instructions.",
		},
		[]string{"chart_kind", "aggregation"},
	)
	aggregateRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chartmesh_aggregate_rows",
			Help:    "Rows scanned per aggregation.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
	aggregateDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chartmesh_aggregate_duration_seconds",
			Help:    "Aggregation latency by engine backend.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend"},
	)
	coercedCellsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chartmesh_coerced_cells_total",
			Help: "Total number of value cells that were not fully numeric.",
		},
	)
	datasetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chartmesh_dataset_loads_total",
			Help: "Total number of dataset loads by format and outcome.",
		},
		[]string{"format", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		resolutionsTotal,
		aggregateRows,
		aggregateDurationSeconds,
		coercedCellsTotal,
		datasetLoadsTotal,
	)
}

func ObserveResolution(kind, aggregation string) {
	resolutionsTotal.WithLabelValues(kind, aggregation).Inc()
}

func ObserveAggregate(backend string, rows, coerced int, elapsed time.Duration) {
	aggregateRows.Observe(float64(rows))
	aggregateDurationSeconds.WithLabelValues(backend).Observe(elapsed.Seconds())
	if coerced > 0 {
		coercedCellsTotal.Add(float64(coerced))
	}
}

func ObserveDatasetLoad(format string, err error) {
	status := DatasetLoadOK
	if err != nil {
		status = DatasetLoadError
	}
	if format == "" {
		format = "unknown"
	}
	datasetLoadsTotal.WithLabelValues(format, status).Inc()
}
