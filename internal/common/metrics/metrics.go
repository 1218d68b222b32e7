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

	AssistantRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Carousel pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	CarouselsEmitted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_carousels_emitted",
			Help:    "Number of carousels returned per request",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8},
		},
	)

	CategoriesNotMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_categories_not_matched_total",
			Help: "Proposed categories dropped because no taxonomy entry matched",
		},
	)

	ListingFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_listing_fetch_failures_total",
			Help: "Failed listing fetches by error code",
		},
		[]string{"error_code"},
	)

	ListingCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_listing_cache_total",
			Help: "Listing cache lookups by result",
		},
		[]string{"result"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)
