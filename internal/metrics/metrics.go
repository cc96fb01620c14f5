// Package metrics defines and registers every custom Prometheus metric of the
// press engine and its reference authority. It is the single source of truth
// for metric names, labels, and help strings.
//
// Metrics register with the default Prometheus registry at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "press"

// ── Engine metrics ────────────────────────────────────────────────────────────

// DispatchTotal counts mutations dispatched by the engine.
// Labels:
//   - mutation: create, edit, delete, publish, reject
//   - outcome: "ok" or the ErrorKind name (e.g. "PermissionDenied")
var DispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "dispatch_total",
		Help:      "Total number of workflow mutations dispatched, by outcome.",
	},
	[]string{"mutation", "outcome"},
)

// DispatchDuration measures a dispatch from permission check to invalidation.
var DispatchDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "dispatch_duration_seconds",
		Help:      "Duration of a workflow mutation including the remote call.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"mutation"},
)

// CacheReadsTotal counts cache reads.
// Label:
//   - result: "hit" (valid entry served) or "miss" (fetch forced)
var CacheReadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "reads_total",
		Help:      "Total number of cache reads, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// CacheInvalidationsTotal counts fired tags by entity kind.
var CacheInvalidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Total number of invalidation tags fired, by entity kind.",
	},
	[]string{"kind"},
)

// SessionEventsTotal counts session lifecycle events.
// Label:
//   - event: established, restored, cleared, expired, rejected
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Total number of session lifecycle events.",
	},
	[]string{"event"},
)

// ── Authority metrics ─────────────────────────────────────────────────────────

// TransitionsTotal counts committed workflow transitions on the authority.
// Label:
//   - mutation: create, edit, delete, publish, reject
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authority",
		Name:      "transitions_total",
		Help:      "Total number of committed article transitions.",
	},
	[]string{"mutation"},
)

// EventsQueueDepth tracks events waiting in each audit worker channel.
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "authority",
		Name:      "events_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// EventsErrorsTotal counts audit events that failed to persist.
var EventsErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authority",
		Name:      "events_errors_total",
		Help:      "Total number of audit events that failed to persist.",
	},
)

// IdempotentReplaysTotal counts create requests answered from the dedup store.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authority",
		Name:      "idempotent_replays_total",
		Help:      "Total number of article creations answered by Idempotency-Key replay.",
	},
)
