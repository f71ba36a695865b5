// Package edge implements PartialEdgeInfo and Edge from spec.md §3/§4.5: the
// signed statement that two peers are connected, used elsewhere to build a
// routing graph. Signatures are ed25519 over a deterministic byte encoding,
// with blake2b (golang.org/x/crypto, already a dependency) providing the
// digest.
package edge

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/ground-x/peerengine/peerid"
)

// PartialEdgeInfo is one side's half of an Edge: a nonce and this peer's
// signature over the canonical (min(A,B), max(A,B), nonce) encoding.
type PartialEdgeInfo struct {
	Nonce     uint64
	Signature []byte
}

// canonicalDigest hashes the canonical ordering of (a, b, nonce): the lower
// ID always first, so both sides sign and verify the identical bytes
// regardless of dial direction.
func canonicalDigest(a, b peerid.ID, nonce uint64) [32]byte {
	lo, hi := a, b
	if hi.Less(lo) {
		lo, hi = hi, lo
	}
	buf := make([]byte, 0, len(lo)+len(hi)+8)
	buf = append(buf, lo[:]...)
	buf = append(buf, hi[:]...)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return blake2b.Sum256(buf)
}

// NewPartialEdgeInfo builds the local half of an edge between local and
// remote, for the given nonce, signed with kp.
func NewPartialEdgeInfo(kp *peerid.KeyPair, remote peerid.ID, nonce uint64) PartialEdgeInfo {
	digest := canonicalDigest(kp.ID, remote, nonce)
	return PartialEdgeInfo{Nonce: nonce, Signature: kp.Sign(digest[:])}
}

// Verify checks that this partial edge's signature is valid for a signature
// by signer over the (local, remote, nonce) tuple.
func (p PartialEdgeInfo) Verify(signer, other peerid.ID) bool {
	digest := canonicalDigest(signer, other, p.Nonce)
	return peerid.Verify(signer, digest[:], p.Signature)
}

// Edge is the full two-sided signed connection statement.
type Edge struct {
	A, B      peerid.ID
	Nonce     uint64
	SignatureA []byte
	SignatureB []byte
}

// NewEdge combines both partial edges. a and b must be the signer of
// SignatureA/SignatureB respectively.
func NewEdge(a, b peerid.ID, nonce uint64, sigA, sigB []byte) Edge {
	return Edge{A: a, B: b, Nonce: nonce, SignatureA: sigA, SignatureB: sigB}
}

// Verify checks both signatures against the canonical (min(A,B), max(A,B),
// nonce) encoding, per spec.md §3.
func (e Edge) Verify() bool {
	digest := canonicalDigest(e.A, e.B, e.Nonce)
	return peerid.Verify(e.A, digest[:], e.SignatureA) &&
		peerid.Verify(e.B, digest[:], e.SignatureB)
}

// Next yields an edge with nonce+1 and no signatures, intended for the
// opposite party to re-sign (spec.md §3, used by the LastEdge/nonce-update
// flow in §4.5).
func (e Edge) Next() Edge {
	return Edge{A: e.A, B: e.B, Nonce: e.Nonce + 1}
}
