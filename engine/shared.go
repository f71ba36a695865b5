// Package engine implements the per-connection protocol actor: handshake
// negotiation, inbound dispatch, client/view-client routing, and ban/close
// semantics (spec.md §4-§5). Grounded on the teacher's basePeer event loop
// (node/cn/peer.go's Broadcast select-loop and term-channel shutdown),
// generalized from a fixed klay wire protocol to the encoding-negotiated,
// dual-collaborator protocol this package implements.
package engine

import "go.uber.org/atomic"

// Shared holds the two atomics spec.md §5 documents as shared across every
// connection in the process, as opposed to the per-connection state that
// only ever mutates on that connection's own goroutine.
type Shared struct {
	// TxnsSinceLastBlock counts ForwardTx deliveries since the last Block
	// message seen by any connection; reset to 0 on any Block, incremented
	// on any Routed(ForwardTx) (spec.md §4.7).
	TxnsSinceLastBlock atomic.Uint64

	// PeerCounter is the live connection count, decremented on shutdown.
	PeerCounter atomic.Int64
}

// NewShared builds a fresh Shared, for one process-wide engine instance.
func NewShared() *Shared { return &Shared{} }
