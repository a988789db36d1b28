// Package metrics registers the trigger service's Prometheus collectors
// on the default registry, exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsTotal counts inbound snapshot submissions by outcome
	// (success, ignored, error).
	SnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cs2link_snapshots_total",
		Help: "Inbound game-state snapshots by processing outcome.",
	}, []string{"status"})

	// EventsFiredTotal counts rule firings by rule id.
	EventsFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cs2link_events_fired_total",
		Help: "Rule firings by rule id.",
	}, []string{"rule"})

	// DispatchTotal counts sink command dispatches by outcome
	// (sent, failed).
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cs2link_dispatch_total",
		Help: "Commands dispatched to the notification sink by outcome.",
	}, []string{"outcome"})

	// ObserverConnections gauges live observer websocket connections.
	ObserverConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cs2link_observer_connections",
		Help: "Live observer websocket connections.",
	})

	// FanoutDropsTotal counts observer connections dropped on a failed
	// event write.
	FanoutDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cs2link_fanout_drops_total",
		Help: "Observer connections dropped during event fan-out.",
	})
)
