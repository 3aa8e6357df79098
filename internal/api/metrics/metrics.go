// Package metrics defines all custom Prometheus metrics for the tracking
// system. It is the single source of truth for metric names, labels, and help
// strings; everything registers with the default registry via promauto at
// package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shiptrack"

// ── Ingest metrics ────────────────────────────────────────────────────────────

// ReportsIngestedTotal counts driver location reports accepted for processing.
// Label:
//   - source: "websocket" or "http"
var ReportsIngestedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_ingested_total",
		Help:      "Total number of driver location reports accepted for processing.",
	},
	[]string{"source"},
)

// ReportsDroppedTotal counts location reports discarded before processing.
// Label:
//   - reason: "invalid" (failed validation) or "shard_full" (backpressure)
var ReportsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_dropped_total",
		Help:      "Total number of location reports discarded before processing.",
	},
	[]string{"reason"},
)

// IngestDuration measures end-to-end handling of one report by a worker,
// including store writes, geofence evaluation and broadcast fan-out.
var IngestDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingest_duration_seconds",
		Help:      "Time taken to fully process one location report.",
		Buckets:   prometheus.DefBuckets,
	},
)

// StatusTransitionsTotal counts geofence-driven status transitions.
// Label:
//   - status: the new shipment status (e.g. "delivered")
var StatusTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Total number of shipment status transitions applied by geofence evaluation.",
	},
	[]string{"status"},
)

// IngestQueueDepth tracks the number of reports waiting in each worker shard.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var IngestQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ingest_queue_depth",
		Help:      "Current number of location reports pending in each dispatcher shard.",
	},
	[]string{"worker_id"},
)

// ── Realtime metrics ──────────────────────────────────────────────────────────

// ConnectedClients tracks the number of open websocket connections.
var ConnectedClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected_clients",
		Help:      "Current number of open websocket connections.",
	},
)

// ActiveSubscriptions tracks the total number of (connection, tracking
// number) subscription pairs.
var ActiveSubscriptions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_subscriptions",
		Help:      "Current number of connection-to-tracking-number subscriptions.",
	},
)

// BroadcastsSentTotal counts messages delivered to subscriber send buffers.
// Label:
//   - type: wire message type ("shipmentLocationUpdate", "statusChanged")
var BroadcastsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_sent_total",
		Help:      "Total number of messages handed to subscriber send buffers.",
	},
	[]string{"type"},
)

// BroadcastsDroppedTotal counts messages dropped because a subscriber's send
// buffer was full (the subscriber is subsequently disconnected).
// Label:
//   - type: wire message type
var BroadcastsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_dropped_total",
		Help:      "Total number of messages dropped for slow subscribers.",
	},
	[]string{"type"},
)

// ── Geocoding metrics ─────────────────────────────────────────────────────────

// GeocodeLookupsTotal counts reverse-geocode resolutions on the ingest path.
// Label:
//   - result: "cache_hit", "resolved", or "fallback"
var GeocodeLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocode_lookups_total",
		Help:      "Total number of reverse-geocode label resolutions, by outcome.",
	},
	[]string{"result"},
)
