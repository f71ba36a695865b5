package wire

import (
	"github.com/ground-x/peerengine/edge"
	"github.com/ground-x/peerengine/peerid"
)

// Kind discriminates the PeerMessage sum type (spec.md §6).
type Kind uint8

const (
	KindHandshake Kind = iota + 1
	KindHandshakeFailure
	KindLastEdge
	KindSyncRoutingTable
	KindRequestUpdateNonce
	KindResponseUpdateNonce
	KindPeersRequest
	KindPeersResponse
	KindBlockHeadersRequest
	KindBlockHeaders
	KindBlockRequest
	KindBlock
	KindTransaction
	KindRouted
	KindDisconnect
	KindChallenge
	KindEpochSyncRequest
	KindEpochSyncResponse
	KindEpochSyncFinalizationRequest
	KindEpochSyncFinalizationResponse
)

// Message is implemented by every PeerMessage variant.
type Message interface {
	Kind() Kind
}

// Handshake negotiates protocol version, identity, genesis compatibility and
// a signed partial edge (spec.md §3, §4.5).
type Handshake struct {
	ProtocolVersion  uint32
	SenderPeerID     peerid.ID
	TargetPeerID     peerid.ID
	SenderListenPort uint16 // 0 means absent
	SenderChainInfo  ChainInfo
	PartialEdgeInfo  edge.PartialEdgeInfo
}

func (Handshake) Kind() Kind { return KindHandshake }

// HandshakeFailureReasonKind discriminates HandshakeFailureReason.
type HandshakeFailureReasonKind uint8

const (
	ReasonProtocolVersionMismatch HandshakeFailureReasonKind = iota + 1
	ReasonGenesisMismatch
	ReasonInvalidTarget
)

// HandshakeFailureReason is the sum type from spec.md §6. Exactly one of the
// fields relevant to Kind is populated.
type HandshakeFailureReason struct {
	Kind HandshakeFailureReasonKind

	// ReasonProtocolVersionMismatch
	Version               uint32
	OldestSupportedVersion uint32

	// ReasonGenesisMismatch
	GenesisID Hash

	// ReasonInvalidTarget
	PeerInfo peerid.Info
}

type HandshakeFailure struct {
	PeerInfo peerid.Info
	Reason   HandshakeFailureReason
}

func (HandshakeFailure) Kind() Kind { return KindHandshakeFailure }

type LastEdge struct {
	Edge edge.Edge
}

func (LastEdge) Kind() Kind { return KindLastEdge }

type SyncRoutingTable struct {
	Update RoutingTableUpdate
}

func (SyncRoutingTable) Kind() Kind { return KindSyncRoutingTable }

type RequestUpdateNonce struct {
	PartialEdgeInfo edge.PartialEdgeInfo
}

func (RequestUpdateNonce) Kind() Kind { return KindRequestUpdateNonce }

type ResponseUpdateNonce struct {
	Edge edge.Edge
}

func (ResponseUpdateNonce) Kind() Kind { return KindResponseUpdateNonce }

type PeersRequest struct{}

func (PeersRequest) Kind() Kind { return KindPeersRequest }

type PeersResponse struct {
	Peers []peerid.Info
}

func (PeersResponse) Kind() Kind { return KindPeersResponse }

type BlockHeadersRequest struct {
	Hashes []Hash
}

func (BlockHeadersRequest) Kind() Kind { return KindBlockHeadersRequest }

type BlockHeaders struct {
	Headers []BlockHeader
}

func (BlockHeaders) Kind() Kind { return KindBlockHeaders }

type BlockRequest struct {
	Hash Hash
}

func (BlockRequest) Kind() Kind { return KindBlockRequest }

type BlockMsg struct {
	Block Block
}

func (BlockMsg) Kind() Kind { return KindBlock }

type TransactionMsg struct {
	Transaction Transaction
}

func (TransactionMsg) Kind() Kind { return KindTransaction }

type Disconnect struct{}

func (Disconnect) Kind() Kind { return KindDisconnect }

type ChallengeMsg struct {
	Challenge Challenge
}

func (ChallengeMsg) Kind() Kind { return KindChallenge }

type EpochSyncRequest struct {
	EpochID Hash
}

func (EpochSyncRequest) Kind() Kind { return KindEpochSyncRequest }

type EpochSyncResponseMsg struct {
	Response EpochSyncResponse
}

func (EpochSyncResponseMsg) Kind() Kind { return KindEpochSyncResponse }

type EpochSyncFinalizationRequest struct {
	EpochID Hash
}

func (EpochSyncFinalizationRequest) Kind() Kind { return KindEpochSyncFinalizationRequest }

type EpochSyncFinalizationResponseMsg struct {
	Response EpochSyncFinalizationResponse
}

func (EpochSyncFinalizationResponseMsg) Kind() Kind { return KindEpochSyncFinalizationResponse }

// --- Routed messages (spec.md §6) ---

// Target is either a peer id or a hash (e.g. an account-routed target).
// Exactly one of PeerID/TargetHash is meaningful, selected by IsHash.
type Target struct {
	IsHash     bool
	PeerID     peerid.ID
	TargetHash Hash
}

// RoutedKind discriminates RoutedBody.
type RoutedKind uint8

const (
	RoutedTxStatusRequest RoutedKind = iota + 1
	RoutedTxStatusResponse
	RoutedReceiptOutcomeRequest
	RoutedStateRequestHeader
	RoutedStateRequestPart
	RoutedBlockApproval
	RoutedForwardTx
	RoutedStateResponse
	RoutedVersionedStateResponse
	RoutedPartialEncodedChunkRequest
	RoutedPartialEncodedChunkResponse
	RoutedQueryResponse
	RoutedPartialEncodedChunk
	RoutedVersionedPartialEncodedChunk
	RoutedPartialEncodedChunkForward
)

// RoutedBody is implemented by every routed sub-message body (spec.md §4.7,
// plus the QueryResponse/VersionedStateResponse supplement in SPEC_FULL.md).
type RoutedBody interface {
	RoutedKind() RoutedKind
}

type TxStatusRequest struct {
	AccountID string
	TxHash    Hash
}

func (TxStatusRequest) RoutedKind() RoutedKind { return RoutedTxStatusRequest }

type TxStatusResponse struct {
	Payload []byte
}

func (TxStatusResponse) RoutedKind() RoutedKind { return RoutedTxStatusResponse }

type ReceiptOutcomeRequest struct {
	ReceiptID Hash
}

func (ReceiptOutcomeRequest) RoutedKind() RoutedKind { return RoutedReceiptOutcomeRequest }

type StateRequestHeader struct {
	ShardID  uint64
	SyncHash Hash
}

func (StateRequestHeader) RoutedKind() RoutedKind { return RoutedStateRequestHeader }

type StateRequestPart struct {
	ShardID  uint64
	SyncHash Hash
	PartID   uint64
}

func (StateRequestPart) RoutedKind() RoutedKind { return RoutedStateRequestPart }

type BlockApproval struct {
	Payload []byte
}

func (BlockApproval) RoutedKind() RoutedKind { return RoutedBlockApproval }

type ForwardTx struct {
	Transaction Transaction
}

func (ForwardTx) RoutedKind() RoutedKind { return RoutedForwardTx }

type StateResponse struct {
	Payload []byte
}

func (StateResponse) RoutedKind() RoutedKind { return RoutedStateResponse }

// VersionedStateResponse is the supplemented routed body (SPEC_FULL.md
// feature #2a) used once state-sync payloads carry a version tag.
type VersionedStateResponse struct {
	Version uint32
	Payload []byte
}

func (VersionedStateResponse) RoutedKind() RoutedKind { return RoutedVersionedStateResponse }

type PartialEncodedChunkRequest struct {
	ChunkHash Hash
	Parts     []uint64
}

func (PartialEncodedChunkRequest) RoutedKind() RoutedKind {
	return RoutedPartialEncodedChunkRequest
}

type PartialEncodedChunkResponse struct {
	ChunkHash Hash
	Payload   []byte
}

func (PartialEncodedChunkResponse) RoutedKind() RoutedKind {
	return RoutedPartialEncodedChunkResponse
}

// QueryResponse is the supplemented routed body (SPEC_FULL.md feature #2).
type QueryResponse struct {
	QueryID string
	Payload []byte
}

func (QueryResponse) RoutedKind() RoutedKind { return RoutedQueryResponse }

// PartialEncodedChunk carries one chunk part/receipt bundle for the
// unversioned chunk-part protocol (the PartialEncodedChunk* family named in
// spec.md §4.7's Client pairing).
type PartialEncodedChunk struct {
	ChunkHash Hash
	Payload   []byte
}

func (PartialEncodedChunk) RoutedKind() RoutedKind { return RoutedPartialEncodedChunk }

// VersionedPartialEncodedChunk is PartialEncodedChunk's version-tagged
// successor, carried alongside it the same way StateResponse and
// VersionedStateResponse coexist.
type VersionedPartialEncodedChunk struct {
	Version   uint32
	ChunkHash Hash
	Payload   []byte
}

func (VersionedPartialEncodedChunk) RoutedKind() RoutedKind {
	return RoutedVersionedPartialEncodedChunk
}

// PartialEncodedChunkForward relays chunk parts a peer forwards ahead of the
// full PartialEncodedChunkResponse, so validators can begin reconstructing a
// chunk before every part has individually arrived.
type PartialEncodedChunkForward struct {
	ChunkHash Hash
	Parts     []uint64
	Payload   []byte
}

func (PartialEncodedChunkForward) RoutedKind() RoutedKind { return RoutedPartialEncodedChunkForward }

// RoutedMessage is (author, target, ttl, signature, body) from spec.md §6.
type RoutedMessage struct {
	Author    peerid.ID
	Target    Target
	TTL       uint8
	Signature []byte
	Body      RoutedBody
}

// Routed wraps a RoutedMessage as a top-level PeerMessage variant.
type Routed struct {
	Message RoutedMessage
}

func (Routed) Kind() Kind { return KindRouted }
