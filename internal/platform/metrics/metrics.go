// Package metrics defines the Prometheus collectors for the tracking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRequests counts progress-service writes by endpoint kind and outcome
	// (success, failure, timeout, rejected).
	SyncRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studytrack_sync_requests_total",
			Help: "Progress service write attempts by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studytrack_sync_request_duration_seconds",
			Help:    "Progress service write latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studytrack_sync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	OutboxDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "studytrack_outbox_depth",
			Help: "Entries waiting in the offline outbox",
		},
		[]string{"queue"},
	)

	OutboxEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studytrack_outbox_evictions_total",
			Help: "Entries dropped because the outbox was full",
		},
		[]string{"queue"},
	)

	OutboxDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studytrack_outbox_delivered_total",
			Help: "Outbox entries delivered by a drain",
		},
		[]string{"queue"},
	)

	SessionsLogged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studytrack_sessions_logged_total",
			Help: "Finalized sessions handed to the remote logger",
		},
	)

	SessionsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studytrack_sessions_discarded_total",
			Help: "Finalized sessions dropped for being shorter than the minimum",
		},
	)

	Heartbeats = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studytrack_heartbeats_total",
			Help: "Heartbeat updates applied to the active session",
		},
	)

	ProgressUpserts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studytrack_progress_upserts_total",
			Help: "Video progress upserts that passed the sampling gate",
		},
	)

	NotificationsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studytrack_notifications_suppressed_total",
			Help: "Sync failure notifications dropped by the throttle",
		},
	)
)
