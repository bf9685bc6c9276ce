package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsJoined = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gochat",
		Subsystem: "hub",
		Name:      "sessions_joined",
		Help:      "Live sessions joined to at least one conversation room.",
	})
	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gochat",
		Subsystem: "hub",
		Name:      "rooms_active",
		Help:      "Conversation rooms with at least one member.",
	})
	connectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gochat",
		Subsystem: "hub",
		Name:      "connections_open",
		Help:      "Open websocket connections.",
	})
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gochat",
		Subsystem: "hub",
		Name:      "events_published_total",
		Help:      "Events published to conversation rooms.",
	}, []string{"event"})
	deliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gochat",
		Subsystem: "hub",
		Name:      "deliveries_total",
		Help:      "Frames handed to session outbound buffers.",
	})
	deliveriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gochat",
		Subsystem: "hub",
		Name:      "deliveries_dropped_total",
		Help:      "Deliveries that failed and dropped their session.",
	})
)
