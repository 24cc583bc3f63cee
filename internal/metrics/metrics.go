// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the dashboard. Collectors register with the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gymadmin"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Dashboard metrics
var (
	// QueryCacheLookups counts list lookups by outcome: hit, miss, shared
	// (joined an in-flight fetch) or stale (result discarded).
	QueryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "query_cache_lookups_total",
			Help:      "Total number of list query cache lookups",
		},
		[]string{"resource", "outcome"},
	)

	QueryCacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "query_cache_invalidations_total",
			Help:      "Total number of resource-wide cache invalidations",
		},
		[]string{"resource"},
	)

	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "mutations_total",
			Help:      "Total number of row mutations issued from the dashboard",
		},
		[]string{"resource", "action", "status"},
	)

	RefreshEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "refresh_events_total",
			Help:      "Total number of table refresh events received",
		},
		[]string{"resource"},
	)
)

// Handler returns the Prometheus exposition handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
