package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts counts every HTTP attempt, retries included
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journalfeed_fetch_attempts_total",
			Help: "Total number of upstream fetch attempts",
		},
		[]string{"endpoint"},
	)

	// FetchFailures counts fetches that failed after all retries
	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journalfeed_fetch_failures_total",
			Help: "Total number of upstream fetches that exhausted their retries",
		},
		[]string{"endpoint", "kind"},
	)

	// FetchLatency tracks end-to-end fetch latency including retry delays
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "journalfeed_fetch_latency_seconds",
			Help:    "Upstream fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// CacheLookups tracks cache results: hit, stale or miss
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journalfeed_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"},
	)

	// PageLoads tracks terminal page load states
	PageLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journalfeed_page_loads_total",
			Help: "Total number of page loads by terminal state",
		},
		[]string{"page", "state"},
	)

	// Generation tracks the current load generation per page
	Generation = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "journalfeed_page_generation",
			Help: "Current load generation of each page",
		},
		[]string{"page"},
	)
)
