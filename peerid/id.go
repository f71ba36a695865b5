// Package peerid defines peer identity, PeerInfo and PeerType (spec.md §3),
// and the ed25519 signing primitives the handshake edge relies on.
package peerid

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
)

// ID is a peer's public identity: an ed25519 public key.
type ID [ed25519.PublicKeySize]byte

func (id ID) String() string { return hex.EncodeToString(id[:]) }

// Less gives IDs a total order, used to build the canonical (min, max, nonce)
// encoding an Edge is signed over.
func (id ID) Less(other ID) bool { return bytes.Compare(id[:], other[:]) < 0 }

func (id ID) Equal(other ID) bool { return id == other }

// IDFromPublicKey converts an ed25519 public key into an ID.
func IDFromPublicKey(pub ed25519.PublicKey) (ID, error) {
	var id ID
	if len(pub) != ed25519.PublicKeySize {
		return id, errors.Errorf("peerid: bad public key length %d", len(pub))
	}
	copy(id[:], pub)
	return id, nil
}

// KeyPair is a local signing identity: a private key and its derived ID.
type KeyPair struct {
	ID      ID
	Private ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh random identity, the way a node mints its
// own peer id on first start.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate ed25519 key")
	}
	id, err := IDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &KeyPair{ID: id, Private: priv}, nil
}

// Sign signs an arbitrary message digest with the local private key.
func (kp *KeyPair) Sign(digest []byte) []byte {
	return ed25519.Sign(kp.Private, digest)
}

// Verify checks a signature against id's public key.
func Verify(id ID, digest, sig []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(id[:]), digest, sig)
}

// Type is PeerType from spec.md §3: immutable per connection, governs who
// sends the first handshake message.
type Type int

const (
	Inbound Type = iota
	Outbound
)

func (t Type) String() string {
	if t == Outbound {
		return "outbound"
	}
	return "inbound"
}

// Info is PeerInfo: (peer-id, optional listen address, optional account id).
type Info struct {
	ID         ID
	ListenAddr string // host:port, empty if unknown/not advertised
	AccountID  string // empty if none
}

func (i Info) String() string {
	if i.ListenAddr == "" {
		return fmt.Sprintf("Info{%s}", i.ID)
	}
	return fmt.Sprintf("Info{%s@%s}", i.ID, i.ListenAddr)
}

// Status is PeerStatus from spec.md §3.
type Status int

const (
	Connecting Status = iota
	Ready
	Banned
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Banned:
		return "banned"
	default:
		return "unknown"
	}
}
