// Package metrics exposes the engine's observable side effects (spec.md
// §6) as github.com/rcrowley/go-metrics counters, the way the teacher
// module registers its own counters under a per-subsystem registry rather
// than writing ad-hoc log lines for things operators want to graph.
package metrics

import (
	"strconv"

	"github.com/rcrowley/go-metrics"
)

// Registry holds every counter the engine updates. One Registry is shared
// across all connections in a process.
type Registry struct {
	r metrics.Registry

	ConnectionsAccepted metrics.Counter
	ConnectionsBanned   metrics.Counter
	ConnectionsClosed   metrics.Counter

	BytesSent     metrics.Counter
	BytesReceived metrics.Counter

	MessagesSent     metrics.Counter
	MessagesReceived metrics.Counter

	// messagesByKind is keyed by wire.Kind; registered lazily since the
	// variant set is fixed but callers shouldn't need to pre-declare it.
	messagesByKind map[uint8]metrics.Counter

	// ReceivedInfoAboutItself counts Handshakes whose sender is the local
	// node itself (self-connections, SPEC_FULL.md supplemented feature #1),
	// a signal of a misconfigured or looped peer.
	ReceivedInfoAboutItself metrics.Counter

	RoutedMessagesDeduped metrics.Counter
}

// New builds a Registry and registers every named counter under name.
func New(name string) *Registry {
	r := metrics.NewPrefixedRegistry(name + ".")
	reg := &Registry{
		r:                       r,
		ConnectionsAccepted:     metrics.NewRegisteredCounter("connections.accepted", r),
		ConnectionsBanned:       metrics.NewRegisteredCounter("connections.banned", r),
		ConnectionsClosed:       metrics.NewRegisteredCounter("connections.closed", r),
		BytesSent:               metrics.NewRegisteredCounter("bytes.sent", r),
		BytesReceived:           metrics.NewRegisteredCounter("bytes.received", r),
		MessagesSent:            metrics.NewRegisteredCounter("messages.sent", r),
		MessagesReceived:        metrics.NewRegisteredCounter("messages.received", r),
		messagesByKind:          make(map[uint8]metrics.Counter),
		ReceivedInfoAboutItself: metrics.NewRegisteredCounter("received_info_about_itself", r),
		RoutedMessagesDeduped:   metrics.NewRegisteredCounter("routed.deduped", r),
	}
	return reg
}

// CountKind increments the per-variant counter for kind, registering it on
// first use.
func (r *Registry) CountKind(kind uint8) {
	c, ok := r.messagesByKind[kind]
	if !ok {
		c = metrics.NewRegisteredCounter(kindCounterName(kind), r.r)
		r.messagesByKind[kind] = c
	}
	c.Inc(1)
}

func kindCounterName(kind uint8) string {
	return "messages.kind." + strconv.Itoa(int(kind))
}
