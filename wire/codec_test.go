package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ground-x/peerengine/edge"
	"github.com/ground-x/peerengine/peerid"
)

func testKeyPair(t *testing.T) *peerid.KeyPair {
	t.Helper()
	kp, err := peerid.GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func sampleHandshake(t *testing.T) Handshake {
	t.Helper()
	local := testKeyPair(t)
	remote := testKeyPair(t)
	return Handshake{
		ProtocolVersion:  7,
		SenderPeerID:     local.ID,
		TargetPeerID:     remote.ID,
		SenderListenPort: 24567,
		SenderChainInfo:  ChainInfo{GenesisID: Hash{1, 2, 3}, Height: 42, TrackedShards: []uint64{0, 1}},
		PartialEdgeInfo:  edge.NewPartialEdgeInfo(local, remote.ID, 1),
	}
}

// Testable property #4 (spec.md §8): Proto and Borsh round-trip every
// message kind identically.
func TestCodecRoundTripBothEncodings(t *testing.T) {
	hs := sampleHandshake(t)
	blk := BlockMsg{Block: Block{Header: BlockHeader{Hash: Hash{9}, Height: 100}, Body: []byte("body")}}

	for _, enc := range []Encoding{EncodingProto, EncodingBorsh} {
		c := NewMessageCodec(enc)

		frames, err := c.Encode(hs)
		require.NoError(t, err)
		require.Len(t, frames, 1, "forced encoding sends exactly one frame")
		decoded, err := c.Decode(frames[0])
		require.NoError(t, err)
		got, ok := decoded.(Handshake)
		require.True(t, ok)
		assert.Equal(t, hs.ProtocolVersion, got.ProtocolVersion)
		assert.Equal(t, hs.SenderPeerID, got.SenderPeerID)
		assert.Equal(t, hs.TargetPeerID, got.TargetPeerID)
		assert.Equal(t, hs.SenderListenPort, got.SenderListenPort)
		assert.Equal(t, hs.SenderChainInfo, got.SenderChainInfo)
		assert.True(t, got.PartialEdgeInfo.Verify(hs.SenderPeerID, hs.TargetPeerID))

		frames, err = c.Encode(blk)
		require.NoError(t, err)
		require.Len(t, frames, 1)
		decoded, err = c.Decode(frames[0])
		require.NoError(t, err)
		gotBlk, ok := decoded.(BlockMsg)
		require.True(t, ok)
		assert.Equal(t, blk.Block.Header.Hash, gotBlk.Block.Header.Hash)
		assert.Equal(t, blk.Block.Body, gotBlk.Block.Body)
	}
}

// Testable property #5: while the effective encoding is unknown, Encode
// produces one frame per encoding (dual-send).
func TestCodecDualSendsWhileUnnegotiated(t *testing.T) {
	c := NewMessageCodec(EncodingNone)
	assert.Equal(t, EncodingNone, c.Effective())

	frames, err := c.Encode(PeersRequest{})
	require.NoError(t, err)
	assert.Len(t, frames, 2, "both encodings sent before negotiation")
}

// Once a Proto frame decodes successfully, the codec latches onto Proto for
// the rest of the connection, and the latch holds across later frames.
func TestCodecLatchesOntoProtoAfterFirstSuccess(t *testing.T) {
	sender := NewMessageCodec(EncodingProto)
	receiver := NewMessageCodec(EncodingNone)

	frames, err := sender.Encode(PeersRequest{})
	require.NoError(t, err)
	require.Len(t, frames, 1)

	_, err = receiver.Decode(frames[0])
	require.NoError(t, err)
	assert.Equal(t, EncodingProto, receiver.Effective())

	frames, err = sender.Encode(Disconnect{})
	require.NoError(t, err)
	_, err = receiver.Decode(frames[0])
	require.NoError(t, err)
	assert.Equal(t, EncodingProto, receiver.Effective(), "latch sticks across subsequent frames")
}

func TestCodecDecodeGarbageFails(t *testing.T) {
	c := NewMessageCodec(EncodingNone)
	_, err := c.Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestRoutedMessageSignAndVerifyRoundTrips(t *testing.T) {
	author := testKeyPair(t)
	msg := RoutedMessage{
		Author: author.ID,
		Target: Target{IsHash: false, PeerID: author.ID},
		TTL:    5,
		Body:   ForwardTx{Transaction: Transaction{Hash: Hash{7}}},
	}
	require.NoError(t, msg.Sign(author))

	ok, err := msg.Verify()
	require.NoError(t, err)
	assert.True(t, ok)

	h1, err := msg.Hash()
	require.NoError(t, err)

	// TTL changes don't affect the signed digest: an in-flight relay can
	// decrement it without invalidating the signature or the dedup key.
	msg.TTL = 4
	ok, err = msg.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
	h2, err := msg.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// Tampering with the body invalidates the signature.
	msg.Body = ForwardTx{Transaction: Transaction{Hash: Hash{8}}}
	ok, err = msg.Verify()
	require.NoError(t, err)
	assert.False(t, ok)

	frames, err := NewMessageCodec(EncodingBorsh).Encode(Routed{Message: msg})
	require.NoError(t, err)
	decoded, err := NewMessageCodec(EncodingBorsh).Decode(frames[0])
	require.NoError(t, err)
	routed, ok := decoded.(Routed)
	require.True(t, ok)
	assert.Equal(t, msg.Author, routed.Message.Author)
}
