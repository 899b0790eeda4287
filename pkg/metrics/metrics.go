package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	FetchesTotal        *prometheus.CounterVec
	FetchDuration       prometheus.Histogram
	GateInFlight        prometheus.Gauge
	GateContentionTotal prometheus.Counter

	DocumentsStoredTotal *prometheus.CounterVec
	ExtractionsTotal     *prometheus.CounterVec
	RowsExportedTotal    prometheus.Counter
	RunsInQueue          prometheus.Gauge
}

// New registers every metric with reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served by the ops API.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests served by the ops API.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		FetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_fetches_total",
				Help: "Total number of page fetches by outcome.",
			},
			[]string{"outcome"}, // success, http_status, network, cancelled
		),
		FetchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_fetch_duration_seconds",
				Help:    "Duration of single page fetches.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		GateInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_fetch_gate_in_flight",
				Help: "Fetches currently holding a concurrency gate slot.",
			},
		),
		GateContentionTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_fetch_gate_contention_total",
				Help: "Gate acquisitions that had to wait for a free slot.",
			},
		),
		DocumentsStoredTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_documents_stored_total",
				Help: "Raw documents appended to the document store.",
			},
			[]string{"table"},
		),
		ExtractionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_extractions_total",
				Help: "Product document extractions by status.",
			},
			[]string{"status", "reason"},
		),
		RowsExportedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_rows_exported_total",
				Help: "Rows written to the bulk-import export.",
			},
		),
		RunsInQueue: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_runs_in_queue",
				Help: "Current number of crawl runs waiting in the queue.",
			},
		),
	}
}
