package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ats"

var (
	// StageTransitions counts candidate moves.
	// Labels: kind (single, bulk), outcome (moved, skipped, failed)
	StageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "stage_transitions_total",
		Help:      "Candidate stage transitions by kind and outcome",
	}, []string{"kind", "outcome"})

	// BulkMoveSize tracks how many ids each bulk move request carries.
	BulkMoveSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "bulk_move_size",
		Help:      "Number of job candidates per bulk move request",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
	})

	// NotificationFailures counts notifications that could not be created.
	// Labels: type
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Notifications dropped because delivery failed",
	}, []string{"type"})

	// AnalyticsDuration measures report computation time.
	// Labels: report, cache (hit, miss, disabled)
	AnalyticsDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "analytics",
		Name:      "duration_seconds",
		Help:      "Analytics report latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"report", "cache"})

	// HTTPRequests counts served requests.
	// Labels: method, status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status code",
	}, []string{"method", "status"})

	// HTTPDuration measures request latency.
	// Labels: method
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
