// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the badge engine.
var (
	// Counters.
	BadgeActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_activations_total",
			Help: "Total number of badge activations",
		},
		[]string{"badge_type", "role"},
	)

	BadgeDeactivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_deactivations_total",
			Help: "Total number of badge deactivations",
		},
		[]string{"badge_type", "role"},
	)

	EvaluationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_evaluation_errors_total",
			Help: "Total per-badge evaluation failures",
		},
		[]string{"badge_type"},
	)

	EventsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_events_dispatched_total",
			Help: "Total domain events accepted by the dispatcher",
		},
		[]string{"kind"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_events_dropped_total",
			Help: "Total domain events dropped because the queue was full",
		},
		[]string{"kind"},
	)

	EventsTimedOutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_events_timed_out_total",
			Help: "Total event handlers abandoned on timeout",
		},
		[]string{"kind"},
	)

	// Gauges.
	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "badge_dispatch_queue_depth",
			Help: "Current number of events waiting in the dispatch queue",
		},
	)

	ActiveBadgeHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "badge_active_holders",
			Help: "Current number of users holding each badge active",
		},
		[]string{"badge_type"},
	)

	// Histograms.
	EvaluationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "badge_evaluation_duration_seconds",
			Help:    "Time taken to evaluate a set of badges for one user",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"trigger"},
	)

	// Resync job metrics.
	ResyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badge_resync_runs_total",
			Help: "Total periodic full-resync job executions",
		},
		[]string{"status"},
	)

	ResyncDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "badge_resync_duration_seconds",
			Help:    "Time taken to execute the full-resync job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
		},
	)
)

// RecordBadgeActivated records a badge activation.
func RecordBadgeActivated(badgeType, role string) {
	BadgeActivationsTotal.WithLabelValues(badgeType, role).Inc()
}

// RecordBadgeDeactivated records a badge deactivation.
func RecordBadgeDeactivated(badgeType, role string) {
	BadgeDeactivationsTotal.WithLabelValues(badgeType, role).Inc()
}

// RecordEvaluationError records a per-badge evaluation failure.
func RecordEvaluationError(badgeType string) {
	EvaluationErrorsTotal.WithLabelValues(badgeType).Inc()
}

// RecordEventDispatched records a domain event accepted by the dispatcher.
func RecordEventDispatched(kind string) {
	EventsDispatchedTotal.WithLabelValues(kind).Inc()
}

// RecordEventDropped records a domain event dropped on a full queue.
func RecordEventDropped(kind string) {
	EventsDroppedTotal.WithLabelValues(kind).Inc()
}

// RecordEventTimedOut records an event handler abandoned on timeout.
func RecordEventTimedOut(kind string) {
	EventsTimedOutTotal.WithLabelValues(kind).Inc()
}

// SetDispatchQueueDepth sets the current dispatch queue depth.
func SetDispatchQueueDepth(depth int) {
	DispatchQueueDepth.Set(float64(depth))
}

// SetActiveBadgeHolders sets the current holder count for a badge.
func SetActiveBadgeHolders(badgeType string, count int) {
	ActiveBadgeHolders.WithLabelValues(badgeType).Set(float64(count))
}

// ObserveEvaluationDuration observes one evaluation run.
func ObserveEvaluationDuration(trigger string, seconds float64) {
	EvaluationDurationSeconds.WithLabelValues(trigger).Observe(seconds)
}

// RecordResyncRun records a full-resync job execution.
func RecordResyncRun(status string) {
	ResyncRunsTotal.WithLabelValues(status).Inc()
}

// ObserveResyncDuration observes one full-resync job execution.
func ObserveResyncDuration(seconds float64) {
	ResyncDurationSeconds.Observe(seconds)
}
