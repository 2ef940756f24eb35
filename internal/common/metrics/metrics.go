// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// ResultCacheRequests counts lookups by backend and outcome (hit, miss, expired, error).
	ResultCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_result_cache_requests_total",
			Help: "Result cache lookups by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	CatalogRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_catalog_refreshes_total",
			Help: "Catalog fetches per item kind and status",
		},
		[]string{"kind", "status"},
	)

	CatalogItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommender_catalog_items",
			Help: "Items in the current catalog snapshot",
		},
		[]string{"kind"},
	)

	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_retrieval_duration_seconds",
			Help:    "Duration of each retrieval path",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"path"},
	)

	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_turns_total",
			Help: "Conversation turns by resolved intent and cache outcome",
		},
		[]string{"intent", "cache"},
	)
)
