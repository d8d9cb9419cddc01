package knowledge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	embedCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orion",
			Name:      "embed_calls_total",
			Help:      "Total embedding API calls",
		},
		[]string{"status"},
	)

	embedDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "orion",
			Name:      "embed_duration_seconds",
			Help:      "Duration of embedding API calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	profileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orion",
			Name:      "profile_runs_total",
			Help:      "Total company profile generation runs",
		},
		[]string{"status"},
	)

	profileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "orion",
			Name:      "profile_duration_seconds",
			Help:      "Duration of company profile generation in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~64s
		},
	)

	contextAssemblyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "orion",
			Name:      "context_assembly_duration_seconds",
			Help:      "Duration of hybrid context assembly in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
