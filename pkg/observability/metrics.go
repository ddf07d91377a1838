package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for finished render tasks.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Metrics holds the collectors of one render session.
type Metrics struct {
	registry *prometheus.Registry

	tasks      *prometheus.CounterVec
	fetches    *prometheus.CounterVec
	downgrades prometheus.Counter
	spawns     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umlpreview_render_tasks_total",
				Help: "Total number of finished render tasks",
			},
			[]string{"strategy", "outcome"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umlpreview_page_fetches_total",
				Help: "Total number of page requests sent to rendering servers",
			},
			[]string{"method"},
		),
		downgrades: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "umlpreview_protocol_downgrades_total",
				Help: "Number of server addresses that rejected the preferred request method",
			},
		),
		spawns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "umlpreview_processes_spawned_total",
				Help: "Total number of spawned engine processes",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "umlpreview_render_duration_seconds",
				Help:    "Duration of render tasks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
	}
	m.registry.MustRegister(m.tasks, m.fetches, m.downgrades, m.spawns, m.duration)
	return m
}

// TaskFinished records the outcome and duration of a render task.
func (m *Metrics) TaskFinished(strategy, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(strategy, outcome).Inc()
	m.duration.WithLabelValues(strategy).Observe(seconds)
}

// PageFetched records one request sent with method.
func (m *Metrics) PageFetched(method string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(method).Inc()
}

// ProtocolDowngraded records an address settling on the fallback method.
func (m *Metrics) ProtocolDowngraded() {
	if m == nil {
		return
	}
	m.downgrades.Inc()
}

// ProcessSpawned records a spawned engine ("engine") or server ("server") process.
func (m *Metrics) ProcessSpawned(kind string) {
	if m == nil {
		return
	}
	m.spawns.WithLabelValues(kind).Inc()
}

// Registry returns the underlying registry, for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
