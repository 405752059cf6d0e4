// Package metrics provides Prometheus collectors for tmsbridge.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tmsbridge"

// Collectors groups every tmsbridge metric. A nil *Collectors records nothing.
type Collectors struct {
	registry *prometheus.Registry

	NotificationsTotal  *prometheus.CounterVec
	DecisionsTotal      *prometheus.CounterVec
	TransitionsTotal    *prometheus.CounterVec
	ActionsTotal        *prometheus.CounterVec
	TMSRequestsTotal    *prometheus.CounterVec
	TMSRequestDuration  *prometheus.HistogramVec
	EventsPublished     *prometheus.CounterVec
	LockWaitDuration    prometheus.Histogram
	NotificationLatency prometheus.Histogram
}

// New registers collectors on a fresh registry that also exposes Go and
// process metrics.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collectors{
		registry: reg,
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "notifications_total",
				Help:      "Inbound TMS notifications by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "automation",
				Name:      "decisions_total",
				Help:      "Automatic requests and downloads performed by profile policy",
			},
			[]string{"decision"},
		),
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Persisted status transitions by scope and resulting status",
			},
			[]string{"scope", "status"},
		),
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broker",
				Name:      "actions_total",
				Help:      "Local broker actions by name and outcome",
			},
			[]string{"action", "outcome"},
		),
		TMSRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tms_client",
				Name:      "requests_total",
				Help:      "Outbound TMS requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		TMSRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "tms_client",
				Name:      "request_duration_seconds",
				Help:      "Duration of outbound TMS requests in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Status-change events handed to the event stream",
			},
			[]string{"status"},
		),
		LockWaitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "locking",
				Name:      "wait_seconds",
				Help:      "Time spent waiting for a unit lock in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
		NotificationLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "handle_duration_seconds",
				Help:      "Time to process one inbound notification in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (c *Collectors) Gatherer() prometheus.Gatherer {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// ObserveTMSRequest satisfies tms.Observer.
func (c *Collectors) ObserveTMSRequest(operation, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.TMSRequestsTotal.WithLabelValues(operation, outcome).Inc()
	c.TMSRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Notification counts one inbound notification.
func (c *Collectors) Notification(eventType, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.NotificationsTotal.WithLabelValues(eventType, outcome).Inc()
	c.NotificationLatency.Observe(duration.Seconds())
}

// Decision counts one automatic request or download.
func (c *Collectors) Decision(decision string) {
	if c == nil {
		return
	}
	c.DecisionsTotal.WithLabelValues(decision).Inc()
}

// Transition counts a persisted status change; scope is "source" or "target".
func (c *Collectors) Transition(scope, status string) {
	if c == nil {
		return
	}
	c.TransitionsTotal.WithLabelValues(scope, status).Inc()
}

// Action counts a local broker action.
func (c *Collectors) Action(action, outcome string) {
	if c == nil {
		return
	}
	c.ActionsTotal.WithLabelValues(action, outcome).Inc()
}

// EventPublished counts an outbound status-change event.
func (c *Collectors) EventPublished(status string) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(status).Inc()
}

// LockWait records how long a unit lock took to acquire.
func (c *Collectors) LockWait(duration time.Duration) {
	if c == nil {
		return
	}
	c.LockWaitDuration.Observe(duration.Seconds())
}
