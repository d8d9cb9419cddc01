package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orion",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		},
		[]string{"decision"},
	)

	escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orion",
			Name:      "escalations_total",
			Help:      "Total sessions escalated to a human operator",
		},
		[]string{"reason"},
	)

	sessionConfidenceObserved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "orion",
			Name:      "session_confidence",
			Help:      "Session confidence after each processed turn",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	oracleCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orion",
			Name:      "oracle_calls_total",
			Help:      "Total oracle generation calls",
		},
		[]string{"status"},
	)

	oracleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "orion",
			Name:      "oracle_duration_seconds",
			Help:      "Duration of oracle generation calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s to ~32s
		},
	)

	summaryRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orion",
			Name:      "summary_runs_total",
			Help:      "Total session summary generation runs",
		},
		[]string{"status"},
	)

	summaryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "orion",
			Name:      "summary_duration_seconds",
			Help:      "Duration of session summary generation in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
