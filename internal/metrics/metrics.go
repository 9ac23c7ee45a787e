// Package metrics holds the Prometheus collectors for the order service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCDuration observes handler latency by procedure and connect code.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitorder_rpc_duration_seconds",
		Help:    "Duration of RPC calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure", "code"})

	// OrderTransitions counts committed status changes.
	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitorder_order_transitions_total",
		Help: "Committed order status transitions.",
	}, []string{"from", "to"})

	// CommitConflicts counts compare-and-set commits lost to a concurrent writer.
	CommitConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitorder_commit_conflicts_total",
		Help: "Order commits retried after a version conflict.",
	})

	// Settlements counts settlement attempts by result (ok, failed).
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitorder_settlements_total",
		Help: "Wallet settlements by result.",
	}, []string{"result"})

	// BroadcastFailures counts envelopes a transport failed to deliver.
	BroadcastFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitorder_broadcast_failures_total",
		Help: "Order update deliveries that failed, by transport.",
	}, []string{"transport"})

	// BroadcastDropped counts envelopes dropped because a queue was full.
	BroadcastDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitorder_broadcast_dropped_total",
		Help: "Order updates dropped on a full queue, by stage.",
	}, []string{"stage"})
)
