package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfetch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidfetch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidfetch_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Metadata cache metrics
var (
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfetch_cache_requests_total",
			Help: "Metadata cache lookups by result (hit, miss, expired)",
		},
		[]string{"cache", "result"},
	)

	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfetch_cache_evictions_total",
			Help: "Expired cache entries removed by reads or sweeps",
		},
		[]string{"cache"},
	)
)

// External process metrics
var (
	ProcessSpawnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfetch_process_spawns_total",
			Help: "External processes started by tool",
		},
		[]string{"tool"},
	)

	ProcessFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfetch_process_failures_total",
			Help: "External process failures by tool and error kind",
		},
		[]string{"tool", "kind"},
	)

	ProcessesRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidfetch_processes_running",
			Help: "External processes currently running",
		},
	)
)

// Transform pipeline metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfetch_jobs_total",
			Help: "Finished transform jobs by acquisition path and terminal state",
		},
		[]string{"path", "state"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidfetch_job_duration_seconds",
			Help:    "Transform job wall time from open to terminal state",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"path"},
	)

	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidfetch_jobs_active",
			Help: "Transform jobs that have not reached a terminal state",
		},
	)
)

// Caption and upload metrics
var (
	CaptionExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfetch_caption_extractions_total",
			Help: "Caption chain runs by method and outcome",
		},
		[]string{"method", "result"},
	)

	UploadsStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vidfetch_uploads_stored_total",
			Help: "Uploaded files accepted and written to disk",
		},
	)

	UploadsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfetch_uploads_rejected_total",
			Help: "Uploads rejected by reason",
		},
		[]string{"reason"},
	)

	UploadsReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vidfetch_uploads_reaped_total",
			Help: "Uploaded files removed by the retention reaper",
		},
	)
)
