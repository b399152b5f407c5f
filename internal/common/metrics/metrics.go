package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_submissions_total",
			Help: "Stage 1 submissions by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionsByTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_submissions_by_tier_total",
			Help: "Accepted submissions by maturity tier",
		},
		[]string{"tier"},
	)

	Stage2Steps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_stage2_steps_total",
			Help: "Stage 2 step results",
		},
		[]string{"step", "status"},
	)

	Stage2Duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assessment_stage2_duration_seconds",
			Help:    "Duration of complete Stage 2 runs in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"dispatcher"},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_provider_requests_total",
			Help: "Chat completion requests by provider and status",
		},
		[]string{"provider", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assessment_provider_latency_seconds",
			Help:    "Chat completion latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 45},
		},
		[]string{"provider"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_notifications_total",
			Help: "Notification deliveries by audience and status",
		},
		[]string{"audience", "status"},
	)

	Downloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_downloads_total",
			Help: "Download attempts by result",
		},
		[]string{"result"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assessment_stage2_queue_depth",
			Help: "Stage 2 jobs waiting in the in-process queue",
		},
	)

	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assessment_stage2_workers_active",
			Help: "Stage 2 jobs currently executing",
		},
	)
)
