package wire

import (
	"golang.org/x/crypto/blake2b"

	"github.com/ground-x/peerengine/peerid"
)

// signedPayload is the canonical (author, target, body) encoding a
// RoutedMessage.Signature is computed over. TTL is excluded, as required by
// spec.md §6 ("ttl-less payload"), since intermediate relays decrement it in
// transit without invalidating the author's signature.
type signedPayload struct {
	Author     [32]byte
	IsHash     bool
	PeerID     [32]byte
	TargetHash [32]byte
	BodyKind   uint8
	BodyBytes  []byte
}

func (m RoutedMessage) canonicalDigest() ([32]byte, error) {
	kind, body, err := borshEncodeRoutedBody(m.Body)
	if err != nil {
		return [32]byte{}, err
	}
	p := signedPayload{
		Author:     [32]byte(m.Author),
		IsHash:     m.Target.IsHash,
		PeerID:     [32]byte(m.Target.PeerID),
		TargetHash: [32]byte(m.Target.TargetHash),
		BodyKind:   uint8(kind),
		BodyBytes:  body,
	}
	b, err := borshEncode(p)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(b), nil
}

// Sign computes and sets m.Signature using kp, which must own m.Author's
// identity.
func (m *RoutedMessage) Sign(kp *peerid.KeyPair) error {
	digest, err := m.canonicalDigest()
	if err != nil {
		return err
	}
	m.Signature = kp.Sign(digest[:])
	return nil
}

// Verify checks m.Signature against the author's public key over the
// canonical (author, target, body) encoding (spec.md §6).
func (m RoutedMessage) Verify() (bool, error) {
	digest, err := m.canonicalDigest()
	if err != nil {
		return false, err
	}
	return peerid.Verify(m.Author, digest[:], m.Signature), nil
}

// Hash is the identifier used by the routed-message dedup cache and by
// RouteBack to address a reply to the original request (spec.md §4.4, §4.7).
// It purposefully excludes the signature and TTL, so retransmissions of the
// same logical message through different relay hops hash identically.
func (m RoutedMessage) Hash() (Hash, error) {
	digest, err := m.canonicalDigest()
	if err != nil {
		return Hash{}, err
	}
	return Hash(digest), nil
}
