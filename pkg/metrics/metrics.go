// Package metrics defines the Prometheus metric collectors used across the
// analyzer and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the analyzer.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	AnalysisRunsTotal     *prometheus.CounterVec
	AnalysisDuration      *prometheus.HistogramVec
	AnalysisQueries       prometheus.Histogram
	AnalysisPages         prometheus.Histogram
	RecommendationsTotal  *prometheus.CounterVec
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	RunStoreFailuresTotal prometheus.Counter
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		AnalysisRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analysis_runs_total",
				Help: "Total analysis runs by status (ok, invalid, error).",
			},
			[]string{"status"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analysis_duration_seconds",
				Help:    "Analysis run latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"cache_status"},
		),
		AnalysisQueries: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analysis_queries_count",
				Help:    "Number of queries per analysis run.",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
			},
		),
		AnalysisPages: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analysis_pages_count",
				Help:    "Number of content pages per analysis run.",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000},
			},
		),
		RecommendationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommendations_total",
				Help: "Recommendations produced, by match quality.",
			},
			[]string{"quality"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		RunStoreFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "run_store_failures_total",
				Help: "Analysis runs that could not be persisted after retries.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AnalysisRunsTotal,
		m.AnalysisDuration,
		m.AnalysisQueries,
		m.AnalysisPages,
		m.RecommendationsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RunStoreFailuresTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
