// Package metrics defines and registers all custom Prometheus metrics for the
// wholesale sync service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry on package init via
// promauto, so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "wholesale"
	subsystem = "sync"
)

// ── Dispatch metrics ──────────────────────────────────────────────────────────

// DispatchTotal counts events handed to the broadcast dispatcher.
// Label:
//   - kind: the event kind (e.g. "product_updated")
var DispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "dispatch_total",
		Help:      "Total number of domain events dispatched.",
	},
	[]string{"kind"},
)

// RecipientsTotal counts successful per-connection sends.
// Labels:
//   - kind: the event kind
//   - audience: "full" or "redacted"
var RecipientsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "recipients_total",
		Help:      "Total number of messages handed to the transport, by audience.",
	},
	[]string{"kind", "audience"},
)

// SendFailuresTotal counts transport-level send failures.
// Label:
//   - channel_type: "admin", "partners" or "partner"
var SendFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "send_failures_total",
		Help:      "Total number of transport send failures.",
	},
	[]string{"channel_type"},
)

// ── Retry metrics ─────────────────────────────────────────────────────────────

// RetryOutcomesTotal counts retry attempts by result.
// Label:
//   - outcome: "delivered", "requeued" or "dropped"
var RetryOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "retry_outcomes_total",
		Help:      "Total number of retry attempts, labelled by outcome.",
	},
	[]string{"outcome"},
)

// RetryQueueDepth tracks the number of pending retry items.
var RetryQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "retry_queue_depth",
		Help:      "Current number of broadcasts waiting for a retry.",
	},
)

// RetryTickDuration measures one pass over the retry queue.
var RetryTickDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "retry_tick_duration_seconds",
		Help:      "Duration of a single retry queue tick.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Connection metrics ────────────────────────────────────────────────────────

// Connections tracks live connections.
// Label:
//   - role: "admin", "partner" or "unauthenticated"
var Connections = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "connections",
		Help:      "Current number of live connections, by role.",
	},
	[]string{"role"},
)

// ── Intake metrics ────────────────────────────────────────────────────────────

// IntakeTotal counts events received over the HTTP intake.
// Label:
//   - result: "accepted", "duplicate", "rejected" or "failed"
var IntakeTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "intake_total",
		Help:      "Total number of intake events, labelled by result.",
	},
	[]string{"result"},
)

// IntakeQueueDepth tracks events waiting in each intake worker channel.
// Label:
//   - worker_id: numeric worker index
var IntakeQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "intake_queue_depth",
		Help:      "Current number of events pending in each intake worker channel.",
	},
	[]string{"worker_id"},
)
