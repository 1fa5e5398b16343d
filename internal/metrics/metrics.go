// Package metrics exposes Prometheus collectors for the jobradar service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	feedFetchesTotal           *prometheus.CounterVec
	feedFetchDurationSeconds   *prometheus.HistogramVec
	jobsFetchedTotal           *prometheus.CounterVec
	jobsPersistedTotal         *prometheus.CounterVec
	jobsFilteredTotal          *prometheus.CounterVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	activeFetches              prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		feedFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_feed_fetches_total",
				Help: "Total number of feed fetch attempts, labeled by feed and status.",
			},
			[]string{"feed", "status"},
		)

		feedFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobradar_feed_fetch_duration_seconds",
				Help:    "Histogram of end-to-end per-feed fetch latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"feed"},
		)

		jobsFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_jobs_fetched_total",
				Help: "Total number of jobs parsed from feed payloads, labeled by feed.",
			},
			[]string{"feed"},
		)

		jobsPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_jobs_persisted_total",
				Help: "Total number of upsert outcomes, labeled by feed and outcome.",
			},
			[]string{"feed", "outcome"},
		)

		jobsFilteredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_jobs_filtered_total",
				Help: "Total number of jobs dropped by the relevance gate, labeled by feed.",
			},
			[]string{"feed"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobradar_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations, labeled by feed.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"feed"},
		)

		activeFetches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobradar_active_fetches",
				Help: "Number of feeds currently being fetched.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFeedFetch records one completed feed fetch attempt.
func ObserveFeedFetch(feed, status string, duration time.Duration) {
	feedFetchesTotal.WithLabelValues(feed, status).Inc()
	feedFetchDurationSeconds.WithLabelValues(feed).Observe(duration.Seconds())
}

// ObserveJobsFetched adds the number of jobs parsed from one payload.
func ObserveJobsFetched(feed string, count int) {
	if count > 0 {
		jobsFetchedTotal.WithLabelValues(feed).Add(float64(count))
	}
}

// ObserveUpsert increments the persistence counter for the given outcome.
func ObserveUpsert(feed, outcome string) {
	jobsPersistedTotal.WithLabelValues(feed, outcome).Inc()
}

// ObserveFiltered increments the relevance-gate drop counter.
func ObserveFiltered(feed string) {
	jobsFilteredTotal.WithLabelValues(feed).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(feed string, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(feed).Observe(duration.Seconds())
}

// IncActiveFetches increments the active fetches gauge.
func IncActiveFetches() {
	activeFetches.Inc()
}

// DecActiveFetches decrements the active fetches gauge.
func DecActiveFetches() {
	activeFetches.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
