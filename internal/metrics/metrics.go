// Package metrics exposes Prometheus instruments for the generation pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "studytools"

const (
	LabelToolType = "tool_type"
	LabelStatus   = "status"
	LabelKind     = "kind"
	LabelOutcome  = "outcome"
)

var TasksSubmitted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      "tasks_submitted_total",
		Help:      "Tasks created by the submitter",
		Namespace: Namespace,
	},
	[]string{LabelToolType},
)

var TaskTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      "task_transitions_total",
		Help:      "Task status transitions written by workers",
		Namespace: Namespace,
	},
	[]string{LabelToolType, LabelStatus},
)

var TaskFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      "task_failures_total",
		Help:      "Tasks that ended failed, by error kind",
		Namespace: Namespace,
	},
	[]string{LabelKind},
)

var GenerationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:      "generation_duration_seconds",
		Help:      "Time spent waiting on the generative backend",
		Namespace: Namespace,
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 90},
	},
	[]string{LabelToolType, LabelOutcome},
)

var FeedSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name:      "feed_subscribers",
		Help:      "Open change-feed subscriptions",
		Namespace: Namespace,
	},
)

var FeedEventsDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      "feed_events_dropped_total",
		Help:      "Change events dropped because a subscriber queue was full",
		Namespace: Namespace,
	},
)

var FeedRelayFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      "feed_relay_failures_total",
		Help:      "Redis change-feed subscriptions that failed and were retried",
		Namespace: Namespace,
	},
)

var NotificationsCreated = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      "notifications_created_total",
		Help:      "Completion notifications recorded",
		Namespace: Namespace,
	},
)

var TasksRequeued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      "tasks_requeued_total",
		Help:      "Stale tasks re-invoked by the reconciler",
		Namespace: Namespace,
	},
	[]string{LabelStatus},
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
