package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrocast_provider_calls_total",
			Help: "Total upstream provider API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astrocast_provider_latency_seconds",
			Help:    "Upstream provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrocast_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"provider", "result"},
	)

	AICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrocast_ai_calls_total",
			Help: "Language model calls by provider and outcome category",
		},
		[]string{"provider", "outcome"},
	)

	PlansComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrocast_plans_computed_total",
			Help: "Suitability plans computed by verdict",
		},
		[]string{"verdict"},
	)

	CacheEntriesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "astrocast_cache_entries_pruned_total",
			Help: "Response cache rows removed by maintenance",
		},
	)
)
