// Package wire defines the wire-stable PeerMessage sum type (spec.md §6),
// the two encodings it can be serialized in, and the length-prefixed frame
// codec that carries them on the byte stream.
package wire

import (
	"github.com/ground-x/peerengine/peerid"
)

// Hash is a 32-byte content hash (block hash, transaction hash, epoch id).
// The chain logic producing these is out of scope (spec.md §1); peerengine
// only needs to carry, compare and sign them.
type Hash [32]byte

// ShardIndex implements cache.ShardedKey so a Hash-keyed cache can be
// sharded across multiple independent LRUs (cache.LRUShardConfig) keyed on
// the digest's leading byte, which is uniformly distributed.
func (h Hash) ShardIndex(numShards int) int {
	if numShards <= 1 {
		return 0
	}
	return int(h[0]) % numShards
}

// ChainInfo is reported in the Handshake message and held for the remote
// peer; the locally-fetched genesis id is held separately (spec.md §3).
type ChainInfo struct {
	GenesisID     Hash
	Height        uint64
	TrackedShards []uint64
	Archival      bool
}

// BlockHeader is the opaque header envelope carried by BlockHeaders /
// Block; fields beyond identity and linkage are out of scope.
type BlockHeader struct {
	Hash       Hash
	PrevHash   Hash
	Height     uint64
	Timestamp  uint64
	ProposerID peerid.ID
	Signature  []byte
}

// Block pairs a header with an opaque, already-serialized body. Block
// execution and validation are chain logic and out of scope.
type Block struct {
	Header BlockHeader
	Body   []byte
}

// Transaction is an opaque signed transaction envelope.
type Transaction struct {
	Hash      Hash
	SignerID  peerid.ID
	Nonce     uint64
	Payload   []byte
	Signature []byte
}

// Challenge is an opaque fraud-proof/challenge envelope.
type Challenge struct {
	Hash    Hash
	Payload []byte
}

// EpochSyncResponse / EpochSyncFinalizationResponse carry opaque epoch-sync
// payloads; epoch-sync logic itself is chain logic and out of scope.
type EpochSyncResponse struct {
	EpochID Hash
	Payload []byte
}

type EpochSyncFinalizationResponse struct {
	EpochID Hash
	Payload []byte
}

// RoutingTableUpdate is an opaque set of edges propagated through
// SyncRoutingTable; routing-table maintenance itself is out of scope
// (spec.md §1 Non-goals), the engine only forwards the update.
type RoutingTableUpdate struct {
	Payload []byte
}
