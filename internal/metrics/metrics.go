package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the relay's Prometheus instruments.
type Collector struct {
	registry *prometheus.Registry

	connectionsOpened prometheus.Counter
	connectionsClosed prometheus.Counter
	eventsRelayed     *prometheus.CounterVec
	activeRooms       prometheus.Gauge
	activeMembers     prometheus.Gauge
}

// NewCollector constructs and registers the relay instruments on a private
// registry, so tests can build collectors without global registration
// conflicts.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	collector := &Collector{
		registry: registry,
		connectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_connections_opened_total",
			Help: "Websocket connections accepted since process start.",
		}),
		connectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_connections_closed_total",
			Help: "Websocket connections closed since process start.",
		}),
		eventsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_relayed_total",
			Help: "Events fanned out to room members, by outbound event name.",
		}, []string{"event"}),
		activeRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_rooms",
			Help: "Rooms with at least one member.",
		}),
		activeMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_members",
			Help: "Connections currently joined to a room.",
		}),
	}
	registry.MustRegister(
		collector.connectionsOpened,
		collector.connectionsClosed,
		collector.eventsRelayed,
		collector.activeRooms,
		collector.activeMembers,
	)
	return collector
}

// Handler exposes the collector's registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ConnectionOpened records one accepted websocket connection.
func (c *Collector) ConnectionOpened() {
	c.connectionsOpened.Inc()
}

// ConnectionClosed records one closed websocket connection.
func (c *Collector) ConnectionClosed() {
	c.connectionsClosed.Inc()
}

// EventRelayed records one fan-out of the named outbound event.
func (c *Collector) EventRelayed(event string) {
	c.eventsRelayed.WithLabelValues(event).Inc()
}

// RoomsChanged records the current room and joined-member counts.
func (c *Collector) RoomsChanged(roomCount, participantCount int) {
	c.activeRooms.Set(float64(roomCount))
	c.activeMembers.Set(float64(participantCount))
}
