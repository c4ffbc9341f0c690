package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesScored counts frames that produced an assessment, by level.
	FramesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentwatch_frames_scored_total",
			Help: "Total number of sampled frames scored, by threat level",
		},
		[]string{"level"},
	)

	// FramesDropped counts sampled frames that yielded no assessment.
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentwatch_frames_dropped_total",
			Help: "Total number of sampled frames skipped or failed",
		},
		[]string{"status"},
	)

	// PostsScored counts analyzed posts, by level.
	PostsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentwatch_posts_scored_total",
			Help: "Total number of social posts scored, by threat level",
		},
		[]string{"level"},
	)

	// ClassifierFallbacks counts classifier failures replaced by fallback values.
	ClassifierFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentwatch_classifier_fallbacks_total",
			Help: "Total number of text classifier calls replaced by fallback values",
		},
		[]string{"stage"},
	)

	// AlertsEmitted counts synthesized alerts.
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentwatch_alerts_emitted_total",
			Help: "Total number of alerts emitted",
		},
		[]string{"level", "incident_type"},
	)

	// CollaboratorDuration tracks model-server call latency.
	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "incidentwatch_collaborator_request_duration_seconds",
			Help:    "Duration of detector and classifier calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collaborator", "outcome"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "incidentwatch_circuit_breaker_state",
			Help: "Circuit breaker state per collaborator (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// SinkErrors counts failed writes per output sink.
	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentwatch_sink_errors_total",
			Help: "Total number of failed output writes",
		},
		[]string{"sink"},
	)

	// InputErrors counts envelopes that could not be decoded.
	InputErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "incidentwatch_input_errors_total",
			Help: "Total number of undecodable input envelopes",
		},
	)
)
