// Package metrics defines the Prometheus collectors shared by the garage
// monitor components.
//
// Every component accepts a nil *Metrics; the helper methods are no-ops on a
// nil receiver so callers never need to guard.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "garage"

// Metrics holds all collectors and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	DiscoveryRequests *prometheus.CounterVec
	Subscriptions     *prometheus.CounterVec
	ActiveSubscribers prometheus.Gauge
	Notifications     *prometheus.CounterVec
	StateChanges      prometheus.Counter
	DoorOpen          prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		DiscoveryRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "discovery",
				Name:      "requests_total",
				Help:      "Discovery datagrams received, by result (matched, ignored, malformed, error)",
			},
			[]string{"result"},
		),

		Subscriptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "subscription",
				Name:      "requests_total",
				Help:      "Subscribe requests, by action (added, refreshed, none)",
			},
			[]string{"action"},
		),

		ActiveSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "subscription",
				Name:      "active",
				Help:      "Subscribers targeted by the most recent notification round",
			},
		),

		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notify",
				Name:      "sends_total",
				Help:      "Outbound notifications, by outcome (expected_failure, unexpected_response, failed)",
			},
			[]string{"outcome"},
		),

		StateChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "door",
				Name:      "state_changes_total",
				Help:      "Door state transitions observed by the monitor",
			},
		),

		DoorOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "door",
				Name:      "open",
				Help:      "Current door state (1=open, 0=closed)",
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Status endpoint requests, by route (status, subscribe, bogus)",
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.DiscoveryRequests,
		m.Subscriptions,
		m.ActiveSubscribers,
		m.Notifications,
		m.StateChanges,
		m.DoorOpen,
		m.HTTPRequests,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Discovery counts a discovery datagram.
func (m *Metrics) Discovery(result string) {
	if m == nil {
		return
	}
	m.DiscoveryRequests.WithLabelValues(result).Inc()
}

// Subscribe counts a subscribe request.
func (m *Metrics) Subscribe(action string) {
	if m == nil {
		return
	}
	m.Subscriptions.WithLabelValues(action).Inc()
}

// Fanout records the number of subscribers targeted by a notification round.
func (m *Metrics) Fanout(n int) {
	if m == nil {
		return
	}
	m.ActiveSubscribers.Set(float64(n))
}

// Notification counts one notification outcome.
func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

// StateChanged counts a transition and updates the door gauge.
func (m *Metrics) StateChanged(open bool) {
	if m == nil {
		return
	}
	m.StateChanges.Inc()
	if open {
		m.DoorOpen.Set(1)
	} else {
		m.DoorOpen.Set(0)
	}
}

// Request counts a status endpoint request.
func (m *Metrics) Request(route string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route).Inc()
}
