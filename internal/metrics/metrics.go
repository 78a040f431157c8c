package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks result cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bpagent_cache_hits_total",
			Help: "Total number of result cache hits",
		},
	)

	// CacheMisses tracks result cache misses, including expired and
	// corrupted entries.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bpagent_cache_misses_total",
			Help: "Total number of result cache misses",
		},
		[]string{"reason"},
	)

	// CacheEvictions tracks entries removed by invalidate, clear and cleanup.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bpagent_cache_evictions_total",
			Help: "Total number of cache entries removed",
		},
		[]string{"operation"},
	)

	// APICallsTotal tracks API calls per endpoint and method.
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bpagent_api_calls_total",
			Help: "Total number of Breaking Point API calls",
		},
		[]string{"method", "endpoint"},
	)

	// APIErrorsTotal tracks API failures per endpoint and error kind.
	APIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bpagent_api_errors_total",
			Help: "Total number of Breaking Point API errors",
		},
		[]string{"endpoint", "kind"},
	)

	// APILatency tracks API call latency.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bpagent_api_latency_seconds",
			Help:    "Breaking Point API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RetryAttempts tracks retries performed by the backoff policy.
	RetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bpagent_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
	)
)
