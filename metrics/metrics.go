// Package metrics carries the ambient observability stack SPEC_FULL.md
// adds over spec.md's core (spec.md's Non-goals exclude an observability
// layer from the core signaling semantics, but ambient concerns are still
// carried regardless, per SPEC_FULL.md's "Supplemented features"). Grounded
// on the teacher's own prometheus/client_golang dependency (wired in
// example/proxysip/main.go via promhttp) rather than a hand-rolled counter
// set.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric this module exports. Construct one with
// NewRegistry and register it with prometheus.DefaultRegisterer (or a
// test registry) in the embedding application's main.
type Registry struct {
	Retransmits        *prometheus.CounterVec
	TransactionTimeouts *prometheus.CounterVec
	DialogsActive       prometheus.Gauge
	DialogsTotal        *prometheus.CounterVec
	NegotiationFailures *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// NewRegistry constructs every metric under the "sipagent" namespace.
func NewRegistry() *Registry {
	return &Registry{
		Retransmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sipagent",
			Subsystem: "transaction",
			Name:      "retransmits_total",
			Help:      "Count of request/response retransmissions by method.",
		}, []string{"method"}),

		TransactionTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sipagent",
			Subsystem: "transaction",
			Name:      "timeouts_total",
			Help:      "Count of transactions that reached Terminated via a timer rather than a final response.",
		}, []string{"method", "role"}),

		DialogsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sipagent",
			Subsystem: "dialog",
			Name:      "active",
			Help:      "Number of dialogs currently Early or Confirmed.",
		}),

		DialogsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sipagent",
			Subsystem: "dialog",
			Name:      "total",
			Help:      "Count of dialog lifecycle events, labeled by outcome.",
		}, []string{"outcome"}),

		NegotiationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sipagent",
			Subsystem: "sdp",
			Name:      "negotiation_failures_total",
			Help:      "Count of SDP negotiation failures by reason.",
		}, []string{"reason"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sipagent",
			Subsystem: "transaction",
			Name:      "request_duration_seconds",
			Help:      "Time from initial send to final response for client transactions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// MustRegister registers every metric in r with reg.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		r.Retransmits,
		r.TransactionTimeouts,
		r.DialogsActive,
		r.DialogsTotal,
		r.NegotiationFailures,
		r.RequestDuration,
	)
}
