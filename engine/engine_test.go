package engine

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ground-x/peerengine/ban"
	"github.com/ground-x/peerengine/collab"
	"github.com/ground-x/peerengine/config"
	"github.com/ground-x/peerengine/edge"
	"github.com/ground-x/peerengine/metrics"
	"github.com/ground-x/peerengine/peerid"
	"github.com/ground-x/peerengine/throttle"
	"github.com/ground-x/peerengine/wire"
)

type harness struct {
	t          *testing.T
	local      *peerid.KeyPair
	remote     *peerid.KeyPair
	genesis    wire.Hash
	peerMgr    *collab.FakePeerManager
	client     *collab.FakeClient
	viewClient *collab.FakeViewClient
	shared     *Shared
	cfg        *config.Config
	conn       *Connection
	remoteCodec *wire.MessageCodec
	remoteFrames *wire.FrameCodec
	cancel     context.CancelFunc
}

func newHarness(t *testing.T, connType peerid.Type) *harness {
	t.Helper()
	local, err := peerid.GenerateKeyPair()
	require.NoError(t, err)
	remote, err := peerid.GenerateKeyPair()
	require.NoError(t, err)

	genesis := wire.Hash{0xaa, 0xbb}
	cfg := config.DefaultConfig()
	cfg.ForceEncoding = wire.EncodingBorsh
	cfg.HandshakeTimeout = 2 * time.Second
	cfg.PeersRequestDebounce = 0

	peerMgr := collab.NewFakePeerManager()
	client := collab.NewFakeClient()
	viewClient := collab.NewFakeViewClient(wire.ChainInfo{GenesisID: genesis, Height: 1})

	localConn, remoteConn := net.Pipe()

	h := &harness{
		t: t, local: local, remote: remote, genesis: genesis,
		peerMgr: peerMgr, client: client, viewClient: viewClient,
		shared: NewShared(), cfg: cfg,
		remoteCodec:  wire.NewMessageCodec(cfg.ForceEncoding),
		remoteFrames: wire.NewFrameCodec(remoteConn, remoteConn, cfg.MaxFrameSize),
	}

	opts := Options{
		Config: cfg,
		Local:  local,
		Type:   connType,
		Collaborators: Collaborators{
			PeerManager: peerMgr,
			Client:      client,
			ViewClient:  viewClient,
		},
		Shared:          h.shared,
		Metrics:         metrics.New(t.Name()),
		Throttle:        throttle.Unlimited(),
		LocalListenAddr: "127.0.0.1:30303",
		RemoteHost:      "127.0.0.1",
		OutboundNonce:   1,
		ProtocolVersion: 10,
		OldestSupportedVersion: 1,
	}
	if connType == peerid.Outbound {
		opts.RemotePeerID = &remote.ID
	}

	h.conn = NewConnection(localConn, opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.conn.Run(ctx)

	t.Cleanup(func() { cancel() })
	return h
}

func (h *harness) readRemote() wire.Message {
	h.t.Helper()
	payload, reason, err := h.remoteFrames.ReadFrame()
	require.NoError(h.t, err)
	require.Nil(h.t, reason)
	msg, err := h.remoteCodec.Decode(payload)
	require.NoError(h.t, err)
	return msg
}

func (h *harness) sendRemote(msg wire.Message) {
	h.t.Helper()
	frames, err := h.remoteCodec.Encode(msg)
	require.NoError(h.t, err)
	for _, f := range frames {
		require.NoError(h.t, h.remoteFrames.WriteFrame(f))
	}
}

func (h *harness) awaitStatus(t *testing.T, want peerid.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.conn.Status() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %v, got %v", want, h.conn.Status())
}

// S1-like scenario: a clean outbound handshake reaches Ready and registers
// the remote with the peer-manager (spec.md §4.5 steps 1-9).
func TestOutboundHandshakeReachesReady(t *testing.T) {
	h := newHarness(t, peerid.Outbound)

	first := h.readRemote()
	hs, ok := first.(wire.Handshake)
	require.True(t, ok)
	assert.Equal(t, h.local.ID, hs.SenderPeerID)
	assert.Equal(t, h.remote.ID, hs.TargetPeerID)
	assert.Equal(t, uint64(1), hs.PartialEdgeInfo.Nonce)

	reply := wire.Handshake{
		ProtocolVersion:  hs.ProtocolVersion,
		SenderPeerID:     h.remote.ID,
		TargetPeerID:     h.local.ID,
		SenderChainInfo:  wire.ChainInfo{GenesisID: h.genesis, Height: 5},
		PartialEdgeInfo:  edge.NewPartialEdgeInfo(h.remote, h.local.ID, hs.PartialEdgeInfo.Nonce),
	}
	h.sendRemote(reply)

	h.awaitStatus(t, peerid.Ready)

	require.Len(t, h.peerMgr.Registered, 1)
	assert.Equal(t, h.remote.ID, h.peerMgr.Registered[0].PeerInfo.ID)
	assert.Equal(t, peerid.Outbound, h.peerMgr.Registered[0].Type)
}

// A bad partial-edge signature bans the connection and still reports the
// remote's identity to the peer-manager (regression test for the
// early-handshake remote-id storage ordering).
func TestInboundHandshakeBadSignatureBans(t *testing.T) {
	h := newHarness(t, peerid.Inbound)

	bogus := edge.NewPartialEdgeInfo(h.remote, h.local.ID, 1)
	bogus.Signature = append([]byte{}, bogus.Signature...)
	bogus.Signature[0] ^= 0xff // corrupt the signature

	h.sendRemote(wire.Handshake{
		ProtocolVersion: 10,
		SenderPeerID:    h.remote.ID,
		TargetPeerID:    h.local.ID,
		SenderChainInfo: wire.ChainInfo{GenesisID: h.genesis},
		PartialEdgeInfo: bogus,
	})

	h.awaitStatus(t, peerid.Banned)

	deadline := time.Now().Add(time.Second)
	for len(h.peerMgr.Banned) == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.Len(t, h.peerMgr.Banned, 1)
	assert.Equal(t, h.remote.ID, h.peerMgr.Banned[0].Peer)
	assert.Equal(t, ban.InvalidSignature, h.peerMgr.Banned[0].Reason.Code)
}

// Once Ready, a routed ForwardTx addressed to the local node is verified,
// deduplicated, and forwarded to the client (spec.md §4.6-§4.7); the shared
// transaction-storm counter increments accordingly.
func TestReadyRoutedForwardTxDispatchesToClient(t *testing.T) {
	h := newHarness(t, peerid.Outbound)

	first := h.readRemote()
	hs := first.(wire.Handshake)
	h.sendRemote(wire.Handshake{
		ProtocolVersion: hs.ProtocolVersion,
		SenderPeerID:    h.remote.ID,
		TargetPeerID:    h.local.ID,
		SenderChainInfo: wire.ChainInfo{GenesisID: h.genesis},
		PartialEdgeInfo: edge.NewPartialEdgeInfo(h.remote, h.local.ID, hs.PartialEdgeInfo.Nonce),
	})
	h.awaitStatus(t, peerid.Ready)

	h.peerMgr.RoutedForMe = true

	routed := wire.RoutedMessage{
		Author: h.remote.ID,
		Target: wire.Target{IsHash: false, PeerID: h.local.ID},
		TTL:    3,
		Body:   wire.ForwardTx{Transaction: wire.Transaction{Hash: wire.Hash{1, 2}}},
	}
	require.NoError(t, routed.Sign(h.remote))
	h.sendRemote(wire.Routed{Message: routed})

	deadline := time.Now().Add(time.Second)
	for len(h.client.ForwardedTxs) == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.Len(t, h.client.ForwardedTxs, 1)
	assert.Equal(t, wire.Hash{1, 2}, h.client.ForwardedTxs[0].Hash)
	assert.Equal(t, uint64(1), h.shared.TxnsSinceLastBlock.Load())

	// A duplicate of the same routed message within the dedup window is
	// dropped rather than forwarded again (spec.md §4.4, testable
	// property #3).
	h.sendRemote(wire.Routed{Message: routed})
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, h.client.ForwardedTxs, 1, "duplicate routed message must not be redelivered")
}
