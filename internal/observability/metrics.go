package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationsTotal counts plan generations by outcome and the stage that ended them
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planner",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Total number of plan generation requests by outcome",
		},
		[]string{"outcome", "stage"},
	)

	// StageDuration tracks pipeline stage latency
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "planner",
			Subsystem: "generation",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// RejectionsTotal counts generated plans rejected by the validator
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planner",
			Subsystem: "validation",
			Name:      "rejections_total",
			Help:      "Total number of generated plans rejected, by kind and invariant",
		},
		[]string{"kind", "invariant"},
	)

	// NormalizationsTotal counts rewrites applied to generated plans
	NormalizationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "planner",
			Subsystem: "validation",
			Name:      "normalizations_total",
			Help:      "Total number of normalizations applied to generated plans",
		},
	)

	// BackendAttempts tracks how many backend calls each generation needed
	BackendAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "planner",
			Subsystem: "backend",
			Name:      "attempts",
			Help:      "Backend attempts per generation",
			Buckets:   []float64{1, 2},
		},
	)

	// HTTPRequestsTotal tracks inbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planner",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks inbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "planner",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 120},
		},
		[]string{"method"},
	)

	// RateLimitHits counts rejected requests
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planner",
			Subsystem: "ratelimit",
			Name:      "hits_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
		[]string{"backend"},
	)

	// EventsPublished counts plan events sent to Kafka
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planner",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of plan events published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordGeneration records the outcome of one generation request
func RecordGeneration(outcome, stage string) {
	GenerationsTotal.WithLabelValues(outcome, stage).Inc()
}

// RecordStage records the duration of one pipeline stage
func RecordStage(stage string, seconds float64) {
	StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordRejection records a validator rejection
func RecordRejection(kind, invariant string) {
	RejectionsTotal.WithLabelValues(kind, invariant).Inc()
}

// RecordHTTPRequest records an inbound HTTP request
func RecordHTTPRequest(method, statusCode string, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(seconds)
}
