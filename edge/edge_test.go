package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ground-x/peerengine/peerid"
)

func genKeyPair(t *testing.T) *peerid.KeyPair {
	t.Helper()
	kp, err := peerid.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func TestPartialEdgeInfoVerify(t *testing.T) {
	a := genKeyPair(t)
	b := genKeyPair(t)

	p := NewPartialEdgeInfo(a, b.ID, 3)
	assert.True(t, p.Verify(a.ID, b.ID))
	assert.False(t, p.Verify(b.ID, a.ID), "wrong signer fails")

	tampered := p
	tampered.Nonce++
	assert.False(t, tampered.Verify(a.ID, b.ID), "nonce isn't covered by a stale signature")
}

func TestPartialEdgeInfoCanonicalOrderingIsDialDirectionIndependent(t *testing.T) {
	a := genKeyPair(t)
	b := genKeyPair(t)

	// Whichever side signs, both should produce a digest covering the same
	// canonical (min, max, nonce) tuple, so the opposite side's Verify call
	// (which doesn't know who dialed) succeeds either way.
	fromA := NewPartialEdgeInfo(a, b.ID, 1)
	fromB := NewPartialEdgeInfo(b, a.ID, 1)

	assert.True(t, fromA.Verify(a.ID, b.ID))
	assert.True(t, fromB.Verify(b.ID, a.ID))
}

func TestEdgeVerifyAndNext(t *testing.T) {
	a := genKeyPair(t)
	b := genKeyPair(t)

	const nonce = 5
	sigA := NewPartialEdgeInfo(a, b.ID, nonce).Signature
	sigB := NewPartialEdgeInfo(b, a.ID, nonce).Signature

	e := NewEdge(a.ID, b.ID, nonce, sigA, sigB)
	assert.True(t, e.Verify())

	bad := e
	bad.SignatureB = sigA
	assert.False(t, bad.Verify())

	next := e.Next()
	assert.Equal(t, uint64(nonce+1), next.Nonce)
	assert.Nil(t, next.SignatureA)
	assert.Nil(t, next.SignatureB)
	assert.Equal(t, e.A, next.A)
	assert.Equal(t, e.B, next.B)
}
