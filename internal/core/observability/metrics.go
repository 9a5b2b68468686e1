// Package observability exposes prometheus metrics for the service.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"parcelone/internal/timing"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wfs_upstream_latency_seconds",
			Help:    "Latency of WFS GetFeature calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"register"},
	)

	fallbackTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfs_fallback_transitions_total",
			Help: "Fallback state transitions taken by the fetch orchestrator.",
		},
		[]string{"kind"},
	)

	pagesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfs_pages_fetched_total",
			Help: "Accumulated result pages by response format.",
		},
		[]string{"format"},
	)

	stepDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "step_duration_seconds",
			Help:    "Duration of named processing steps.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"step"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache results by outcome.",
		},
		[]string{"outcome"},
	)

	cacheOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Duration of cache store operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "ok"},
	)

	invalidationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invalidation_duration_seconds",
			Help:    "Duration of applied invalidation events in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "ok"},
	)

	invalidationKeysEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invalidation_keys_evicted_total",
			Help: "Cache keys evicted by invalidation events.",
		},
	)

	kafkaConsumerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Kafka consumer errors by kind.",
		},
		[]string{"kind"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(register string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(register).Observe(durationSeconds)
}

// IncFallback records one orchestrator transition: "drop_srs",
// "split_by_one", "cql", "end_on_400".
func IncFallback(kind string) {
	fallbackTransitionsTotal.WithLabelValues(kind).Inc()
}

func AddPages(format string, n int) {
	pagesFetchedTotal.WithLabelValues(format).Add(float64(n))
}

func IncCacheHit()  { cacheResults.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheResults.WithLabelValues("miss").Inc() }

func ObserveInvalidation(op string, keys int, d time.Duration, err error) {
	ok := "true"
	if err != nil {
		ok = "false"
	}
	invalidationDurationSeconds.WithLabelValues(op, ok).Observe(d.Seconds())
	if keys > 0 {
		invalidationKeysEvicted.Add(float64(keys))
	}
}

func IncKafkaConsumerError(kind string) {
	kafkaConsumerErrorsTotal.WithLabelValues(kind).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	ok := "true"
	if err != nil {
		ok = "false"
	}
	cacheOpDurationSeconds.WithLabelValues(op, ok).Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

// StepSink is a timing.Sink backed by the step duration histogram.
func StepSink() timing.Sink {
	return timing.Func(func(step string, d time.Duration) {
		stepDurationSeconds.WithLabelValues(step).Observe(d.Seconds())
	})
}
