// Package collab defines the three external collaborators the engine talks
// to — the peer-manager, the client, and the view-client (spec.md §6, §9) —
// as plain Go interfaces instead of actor recipients. The engine holds only
// a one-way handle to each; cyclic actor references from the original
// design are broken the way §9 prescribes: registration returns data, not a
// callback handle back into the collaborator.
package collab

import (
	"context"
	"time"

	"github.com/ground-x/peerengine/ban"
	"github.com/ground-x/peerengine/edge"
	"github.com/ground-x/peerengine/peerid"
	"github.com/ground-x/peerengine/wire"
)

// Verdict is the client's response to a state-mutating message (spec.md
// §4.7): Ok, InvalidTx(err), Ban(reason), or Ignored.
type Verdict struct {
	Kind   VerdictKind
	Err    string     // VerdictInvalidTx
	Reason ban.Reason // VerdictBan
}

type VerdictKind uint8

const (
	VerdictOk VerdictKind = iota
	VerdictInvalidTx
	VerdictBan
	VerdictIgnored
)

func Ok() Verdict                      { return Verdict{Kind: VerdictOk} }
func InvalidTx(err string) Verdict     { return Verdict{Kind: VerdictInvalidTx, Err: err} }
func Ban(reason ban.Reason) Verdict    { return Verdict{Kind: VerdictBan, Reason: reason} }
func Ignored() Verdict                 { return Verdict{Kind: VerdictIgnored} }

// RegisterPeerRequest is what the engine offers the peer-manager on a
// successful handshake (spec.md §4.5, §4.8).
type RegisterPeerRequest struct {
	PeerInfo        peerid.Info
	Type            peerid.Type
	ChainInfo       wire.ChainInfo
	PartialEdgeInfo edge.PartialEdgeInfo
}

// RegisterPeerResponse is the peer-manager's verdict on a RegisterPeer
// request. A nil BanReason with Accepted=false just refuses the
// registration (connection is closed, not banned).
type RegisterPeerResponse struct {
	Accepted  bool
	BanReason *ban.Reason
}

// UnregisterRequest mirrors spec.md §4.8's shutdown notification.
type UnregisterRequest struct {
	PeerID              peerid.ID
	PeerType            peerid.Type
	RemoveFromPeerStore bool
}

// PeerManager is the routing-table / peer-selection / outbound-dialing
// collaborator (spec.md §6, out of scope for this module beyond the
// interface boundary).
type PeerManager interface {
	RegisterPeer(ctx context.Context, req RegisterPeerRequest) (RegisterPeerResponse, error)
	Unregister(ctx context.Context, req UnregisterRequest) error
	Ban(ctx context.Context, peer peerid.ID, reason ban.Reason) error

	// RouteBack delivers body as a reply to the routed message originally
	// identified by originalHash (spec.md §4.7).
	RouteBack(ctx context.Context, body wire.RoutedBody, originalHash wire.Hash) error

	// RoutedMessageFrom asks whether msg is addressed to the local node.
	// If forMe is false, the peer-manager takes care of onward routing and
	// the engine does nothing further with msg.
	RoutedMessageFrom(ctx context.Context, msg wire.RoutedMessage) (forMe bool, err error)

	PeersRequest(ctx context.Context) ([]peerid.Info, error)
	PeersResponse(ctx context.Context, peers []peerid.Info) error

	SyncRoutingTable(ctx context.Context, update wire.RoutingTableUpdate) error

	// RequestUpdateNonce may answer with a completed edge (to relay back as
	// ResponseUpdateNonce) or a ban reason (spec.md §4.6).
	RequestUpdateNonce(ctx context.Context, info edge.PartialEdgeInfo) (*edge.Edge, *ban.Reason, error)
	ResponseUpdateNonce(ctx context.Context, e edge.Edge) error

	UpdatePeerInfo(ctx context.Context, info peerid.Info) error

	// UpdateEdge asks the peer-manager to produce a fresh signed partial
	// edge for e (normally e.Next() of the last known edge); a nil result
	// with a nil error means the peer-manager declined (spec.md §4.5's
	// inbound LastEdge rule).
	UpdateEdge(ctx context.Context, e edge.Edge) (*edge.PartialEdgeInfo, error)

	ReceivedMessage(ctx context.Context, peer peerid.ID, at time.Time) error
}

// Client accepts state-mutating chain messages (spec.md §4.7).
type Client interface {
	Block(ctx context.Context, block wire.Block) Verdict
	Transaction(ctx context.Context, tx wire.Transaction) Verdict
	BlockHeaders(ctx context.Context, headers []wire.BlockHeader) Verdict
	Challenge(ctx context.Context, challenge wire.Challenge) Verdict
	EpochSyncResponse(ctx context.Context, resp wire.EpochSyncResponse) Verdict
	EpochSyncFinalizationResponse(ctx context.Context, resp wire.EpochSyncFinalizationResponse) Verdict

	BlockApproval(ctx context.Context, author peerid.ID, payload []byte) Verdict
	ForwardTx(ctx context.Context, tx wire.Transaction) Verdict
	StateResponse(ctx context.Context, payload []byte) Verdict
	VersionedStateResponse(ctx context.Context, version uint32, payload []byte) Verdict
	PartialEncodedChunkRequest(ctx context.Context, chunkHash wire.Hash, parts []uint64) Verdict
	PartialEncodedChunkResponse(ctx context.Context, chunkHash wire.Hash, payload []byte) Verdict
	PartialEncodedChunk(ctx context.Context, chunkHash wire.Hash, payload []byte) Verdict
	VersionedPartialEncodedChunk(ctx context.Context, chunkHash wire.Hash, version uint32, payload []byte) Verdict
	PartialEncodedChunkForward(ctx context.Context, chunkHash wire.Hash, parts []uint64, payload []byte) Verdict
}

// ViewClient answers read-only queries (spec.md §4.7).
type ViewClient interface {
	GetChainInfo(ctx context.Context) (wire.ChainInfo, error)

	BlockRequest(ctx context.Context, hash wire.Hash) (wire.Block, bool, error)
	BlockHeadersRequest(ctx context.Context, hashes []wire.Hash) ([]wire.BlockHeader, error)

	TxStatusRequest(ctx context.Context, accountID string, txHash wire.Hash) ([]byte, error)
	ReceiptOutcomeRequest(ctx context.Context, receiptID wire.Hash) ([]byte, error)
	StateRequestHeader(ctx context.Context, shardID uint64, syncHash wire.Hash) ([]byte, error)
	StateRequestPart(ctx context.Context, shardID uint64, syncHash wire.Hash, partID uint64) ([]byte, error)

	EpochSyncRequest(ctx context.Context, epochID wire.Hash) (wire.EpochSyncResponse, error)
	EpochSyncFinalizationRequest(ctx context.Context, epochID wire.Hash) (wire.EpochSyncFinalizationResponse, error)

	// TxStatusResponse and QueryResponse deliver the answer to a
	// TxStatusRequest/query this node originated, routed back to it as an
	// inbound routed message (spec.md §4.7).
	TxStatusResponse(ctx context.Context, payload []byte) error
	QueryResponse(ctx context.Context, queryID string, payload []byte) error
}
