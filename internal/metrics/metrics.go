// Package metrics exposes Prometheus instrumentation for session lifecycle
// and watchdog events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Metrics holds every instrument this daemon exports. Callers obtain it via
// New and register its HTTP handler on the control plane's mux.
type Metrics struct {
	registry *prometheus.Registry

	SessionsCreated   prometheus.Counter
	SessionsByState   *prometheus.CounterVec
	WatchdogStaleHits prometheus.Counter
	ReceiverBindOK    prometheus.Counter
	ReceiverBindFail  prometheus.Counter
	ActiveSessions    prometheus.Gauge
}

// New constructs and registers all instruments on a dedicated registry
// (kept separate from the default global registry so tests can build
// independent instances without collector-already-registered panics).
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webcast",
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created.",
		}),
		SessionsByState: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webcast",
			Name:      "sessions_terminal_total",
			Help:      "Total sessions that reached a terminal state, by state.",
		}, []string{"state"}),
		WatchdogStaleHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webcast",
			Name:      "watchdog_stale_total",
			Help:      "Total number of watchdog stale-output failures.",
		}),
		ReceiverBindOK: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webcast",
			Name:      "receiver_bind_success_total",
			Help:      "Total successful receiver bindings.",
		}),
		ReceiverBindFail: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webcast",
			Name:      "receiver_bind_conflict_total",
			Help:      "Total receiver binding attempts rejected due to exclusivity.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "webcast",
			Name:      "active_sessions",
			Help:      "Number of sessions currently registered.",
		}),
	}

	reg.MustRegister(
		m.SessionsCreated,
		m.SessionsByState,
		m.WatchdogStaleHits,
		m.ReceiverBindOK,
		m.ReceiverBindFail,
		m.ActiveSessions,
	)

	return m
}

// Handler returns the HTTP handler serving this registry's exposition.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
