package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submission outcomes
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelhub_submissions_total",
			Help: "Total number of model submissions by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modelhub_submission_bytes_total",
			Help: "Total bytes of model documents received",
		},
	)

	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelhub_rejections_total",
			Help: "Submissions rejected by validation or conflict, by error kind",
		},
		[]string{"kind", "category"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "modelhub_pipeline_duration_seconds",
			Help:    "Duration of a full pipeline run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Classification
	ElementsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelhub_elements_classified_total",
			Help: "Payload elements classified, by group",
		},
		[]string{"group"},
	)

	// Object store
	ObjectStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelhub_object_store_duration_seconds",
			Help:    "Duration of object store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	ObjectStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelhub_object_store_errors_total",
			Help: "Total number of object store errors",
		},
		[]string{"op"},
	)

	// Status tracking
	CheckpointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelhub_checkpoints_total",
			Help: "Checkpoints written, by state",
		},
		[]string{"state"},
	)

	CheckpointFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modelhub_checkpoint_failures_total",
			Help: "Checkpoint writes that failed and were dropped",
		},
	)

	// Locking and rate limiting
	LockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modelhub_name_lock_contention_total",
			Help: "Submissions refused because another submission held the name",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelhub_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"subject"},
	)

	// Follow-up delivery
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelhub_tessellation_notifications_total",
			Help: "Staged-model notifications published, by result",
		},
		[]string{"result"},
	)

	DeadLettersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelhub_dead_letters_total",
			Help: "Failed submissions written to the dead letter queue, by result",
		},
		[]string{"result"},
	)
)
