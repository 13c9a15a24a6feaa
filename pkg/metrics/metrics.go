package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts records dataset fetch attempts by source URL and result
	// (cache_hit|accepted|transport_error|content_rejected).
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osanyin_fetch_attempts_total",
			Help: "Total number of herb dataset fetch attempts",
		},
		[]string{"source", "result"},
	)

	// DatasetRecords tracks the number of herb records currently loaded.
	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "osanyin_dataset_records",
			Help: "Number of herb records in the loaded collection",
		},
	)

	// FavoriteWrites counts favorite store mutations and their outcome (ok|error).
	FavoriteWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osanyin_favorite_writes_total",
			Help: "Total number of favorite store mutations",
		},
		[]string{"operation", "result"},
	)

	// InteractionChecks counts drug interaction analyses by provider and outcome.
	InteractionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osanyin_interaction_checks_total",
			Help: "Total number of drug interaction checks",
		},
		[]string{"provider", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osanyin_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
