// Package server exposes Prometheus instrumentation for the relay: live
// connection and room gauges plus message and broadcast counters.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the relay's instruments. Each server instance owns its own
// registry so tests can construct isolated instances without duplicate
// registration panics.
type Metrics struct {
	registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	MessagesReceived  prometheus.Counter
	BroadcastsSent    prometheus.Counter
}

// NewMetrics creates and registers the relay's instruments on a fresh
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pinchat_active_connections",
			Help: "Number of currently open WebSocket connections.",
		}),
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pinchat_active_rooms",
			Help: "Number of rooms with at least one member.",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "pinchat_messages_received_total",
			Help: "Total inbound frames parsed from clients.",
		}),
		BroadcastsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "pinchat_broadcasts_sent_total",
			Help: "Total outbound frames delivered to room members.",
		}),
	}
}

// Handler serves the metrics endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
