// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values shared by the geocode and reconcile counters.
const (
	OutcomeMatched   = "matched"
	OutcomeNotFound  = "not_found"
	OutcomeUnmatched = "unmatched"
	OutcomeError     = "error"
	OutcomeSkipped   = "skipped"
	OutcomeCacheHit  = "cache_hit"
)

var (
	GeocodeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caseload_geocode_requests_total",
		Help: "Geocode lookups by provider and outcome",
	}, []string{"provider", "outcome"})
	GeocodeDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caseload_geocode_duration_ms",
		Help:    "Geocode provider call duration in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"provider"})
	ReconcilePatientsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caseload_reconcile_patients_total",
		Help: "Patients visited by reconciliation, by outcome",
	}, []string{"outcome"})
	ReconcileRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "caseload_reconcile_runs_total",
		Help: "Reconciliation runs started",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caseload_http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})
	HTTPDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caseload_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(
		GeocodeRequestsTotal,
		GeocodeDurationMs,
		ReconcilePatientsTotal,
		ReconcileRunsTotal,
		HTTPRequestsTotal,
		HTTPDurationMs,
	)
}

// Handler serves the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
