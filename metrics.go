// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package sass

import "github.com/prometheus/client_golang/prometheus"

var (
	dispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sass",
			Subsystem: "dispatcher",
			Name:      "dispatched_messages_total",
			Help:      "Outbound protocol messages routed by kind.",
		},
		[]string{"kind"},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sass",
			Subsystem: "dispatcher",
			Name:      "active_connections",
			Help:      "Connections currently subscribed to a Dispatcher.",
		},
	)

	dispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sass",
			Subsystem: "dispatcher",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent routing one message read from the compiler.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	respawnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sass",
			Subsystem: "channel",
			Name:      "respawns_total",
			Help:      "Times a Channel has respawned its compiler subprocess.",
		},
	)
)

func init() {
	prometheus.MustRegister(dispatchedTotal, activeConnections, dispatchDuration, respawnsTotal)
}
