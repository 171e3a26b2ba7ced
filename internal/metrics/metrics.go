// Package metrics provides Prometheus metrics for xpdash.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "xpdash"

var (
	// ProfileLoads counts pipeline runs by outcome.
	ProfileLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_loads_total",
			Help:      "Total number of profile loads",
		},
		[]string{"status"},
	)

	// ProfileLoadDuration measures end-to-end pipeline runs.
	ProfileLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profile_load_duration_seconds",
			Help:      "Duration of profile loads in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// PagesFetched counts pages retrieved by the paginator.
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of result pages fetched",
		},
		[]string{"query"},
	)

	// PaginationTruncated counts fetches stopped by the page limit.
	PaginationTruncated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pagination_truncated_total",
			Help:      "Total number of paginated fetches stopped at the page limit",
		},
		[]string{"query"},
	)

	// QueryRequests counts remote query requests.
	QueryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_requests_total",
			Help:      "Total number of remote query requests",
		},
		[]string{"query", "status"},
	)

	// QueryDuration measures remote query latency.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of remote queries in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// EventsPublished counts profile events sent to the broker.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of published profile events",
		},
		[]string{"status"},
	)

	// ActiveSessions tracks sessions held in memory.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions currently held in memory",
		},
	)

	// RateLimited counts requests rejected by the login limiter.
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)
)

// RecordProfileLoad records one pipeline run.
func RecordProfileLoad(status string, seconds float64) {
	ProfileLoads.WithLabelValues(status).Inc()
	ProfileLoadDuration.Observe(seconds)
}

// RecordPage records one fetched page.
func RecordPage(query string) {
	PagesFetched.WithLabelValues(query).Inc()
}

// RecordTruncated records a fetch that hit the page limit.
func RecordTruncated(query string) {
	PaginationTruncated.WithLabelValues(query).Inc()
}

// RecordQuery records one remote request.
func RecordQuery(query, status string, seconds float64) {
	QueryRequests.WithLabelValues(query, status).Inc()
	QueryDuration.WithLabelValues(query).Observe(seconds)
}

// RecordEvent records a publish attempt.
func RecordEvent(status string) {
	EventsPublished.WithLabelValues(status).Inc()
}

// SetSessions updates the session gauge.
func SetSessions(n int) {
	ActiveSessions.Set(float64(n))
}

// RecordRateLimited records a rejected request.
func RecordRateLimited() {
	RateLimited.Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
