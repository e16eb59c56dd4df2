// Package metrics holds the Prometheus collectors of the recommender.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	Recomputations     prometheus.Counter
	WindowsChanged     prometheus.Counter
	ModelNotifications *prometheus.CounterVec
	WindowEvents       *prometheus.CounterVec
	TrackedWindows     prometheus.Gauge
	SourceErrors       prometheus.Counter

	// Journal metrics
	JournalWritten prometheus.Counter
	JournalDropped prometheus.Counter
	JournalErrors  prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    prometheus.Counter
}

// New creates the collectors on a private registry that also carries the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Recomputations: factory.NewCounter(prometheus.CounterOpts{
			Name: "focusrank_recomputations_total",
			Help: "Total number of merged score recomputations",
		}),
		WindowsChanged: factory.NewCounter(prometheus.CounterOpts{
			Name: "focusrank_windows_changed_total",
			Help: "Total number of top window list changes",
		}),
		ModelNotifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusrank_model_notifications_total",
				Help: "Total number of score change notifications by model",
			},
			[]string{"model"},
		),
		WindowEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focusrank_window_events_total",
				Help: "Total number of dispatched window events by kind",
			},
			[]string{"kind"},
		),
		TrackedWindows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "focusrank_tracked_windows",
			Help: "Number of open windows known to the recommender",
		}),
		SourceErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "focusrank_source_errors_total",
			Help: "Total number of window source errors",
		}),

		JournalWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "focusrank_journal_written_total",
			Help: "Total number of journal entries written",
		}),
		JournalDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "focusrank_journal_dropped_total",
			Help: "Total number of journal entries dropped because the queue was full",
		}),
		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "focusrank_journal_errors_total",
			Help: "Total number of failed journal writes",
		}),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "focusrank_ws_connections",
			Help: "Number of connected WebSocket clients",
		}),
		WSMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "focusrank_ws_messages_total",
			Help: "Total number of WebSocket messages sent",
		}),
	}
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
