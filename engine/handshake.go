package engine

import (
	"context"
	"net"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ground-x/peerengine/ban"
	"github.com/ground-x/peerengine/collab"
	"github.com/ground-x/peerengine/edge"
	"github.com/ground-x/peerengine/peerid"
	"github.com/ground-x/peerengine/wire"
)

var errOutboundMissingTarget = errors.New("outbound connection requires Options.RemotePeerID")

// handshakeState holds the Connecting-state data that only the Run
// goroutine touches (spec.md §4.5): the negotiated version, our own chain
// info and genesis id, and the partial edge we advertise.
type handshakeState struct {
	negotiatedVersion uint32
	localGenesisID    wire.Hash
	localChainInfo    wire.ChainInfo
	ourPartialEdge    edge.PartialEdgeInfo
}

// beginOutboundHandshake implements spec.md §4.5's "If Outbound, send
// initial Handshake once genesis_id is known" initial action.
func (c *Connection) beginOutboundHandshake(ctx context.Context) error {
	info, err := c.viewClient.GetChainInfo(ctx)
	if err != nil {
		return err
	}
	c.hs.localChainInfo = info
	c.hs.localGenesisID = info.GenesisID
	c.hs.negotiatedVersion = c.opts.ProtocolVersion

	if c.opts.RemotePeerID == nil {
		return errOutboundMissingTarget
	}
	c.hs.ourPartialEdge = c.newPartialEdgeInfo(*c.opts.RemotePeerID)
	c.sendHandshake(*c.opts.RemotePeerID)
	return nil
}

func (c *Connection) sendHandshake(target peerid.ID) {
	c.Send(wire.Handshake{
		ProtocolVersion:  c.hs.negotiatedVersion,
		SenderPeerID:     c.opts.Local.ID,
		TargetPeerID:     target,
		SenderListenPort: listenPort(c.opts.LocalListenAddr),
		SenderChainInfo:  c.hs.localChainInfo,
		PartialEdgeInfo:  c.hs.ourPartialEdge,
	})
}

func listenPort(addr string) uint16 {
	if addr == "" {
		return 0
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	p, err := strconv.Atoi(portStr)
	if err != nil || p < 0 || p > 0xffff {
		return 0
	}
	return uint16(p)
}

// handleHandshake implements the inbound-Handshake-while-Connecting rules
// of spec.md §4.5 steps 1-9. It returns true if the connection should tear
// down (closed or banned) as a result.
func (c *Connection) handleHandshake(ctx context.Context, hs wire.Handshake) bool {
	if c.hs.localChainInfo.GenesisID == (wire.Hash{}) {
		// Inbound connection: fetch our own chain info lazily, the first
		// time we need it to answer a handshake.
		info, err := c.viewClient.GetChainInfo(ctx)
		if err != nil {
			c.log.Warn("GetChainInfo failed", "err", err)
			return true
		}
		c.hs.localChainInfo = info
		c.hs.localGenesisID = info.GenesisID
		c.hs.negotiatedVersion = c.opts.ProtocolVersion
	}

	// Step 1: protocol version window.
	if hs.ProtocolVersion < c.opts.OldestSupportedVersion || hs.ProtocolVersion > c.opts.ProtocolVersion {
		c.Send(wire.HandshakeFailure{
			PeerInfo: peerid.Info{ID: c.opts.Local.ID},
			Reason: wire.HandshakeFailureReason{
				Kind:                   wire.ReasonProtocolVersionMismatch,
				Version:                c.opts.ProtocolVersion,
				OldestSupportedVersion: c.opts.OldestSupportedVersion,
			},
		})
		return false // stay Connecting; handshake timer will close if nothing recovers it
	}

	// Step 2: negotiate version downward.
	if hs.ProtocolVersion < c.hs.negotiatedVersion {
		c.hs.negotiatedVersion = hs.ProtocolVersion
	}

	// Step 3: genesis compatibility.
	if hs.SenderChainInfo.GenesisID != c.hs.localGenesisID {
		c.Send(wire.HandshakeFailure{
			PeerInfo: peerid.Info{ID: c.opts.Local.ID},
			Reason: wire.HandshakeFailureReason{
				Kind:      wire.ReasonGenesisMismatch,
				GenesisID: c.hs.localGenesisID,
			},
		})
		return false
	}

	// Step 4: self-connection.
	if hs.SenderPeerID == c.opts.Local.ID {
		c.metrics.ReceivedInfoAboutItself.Inc(1)
		return true
	}

	// The remote's identity is known and legitimate from here on: remember
	// it so any ban/close below can still notify the peer-manager with the
	// right peer id at teardown, even though registration (step 9) hasn't
	// happened yet.
	c.remotePeerID.Store(hs.SenderPeerID)

	// Step 5: target identity.
	if hs.TargetPeerID != c.opts.Local.ID {
		c.Send(wire.HandshakeFailure{
			PeerInfo: peerid.Info{ID: c.opts.Local.ID},
			Reason: wire.HandshakeFailureReason{
				Kind:     wire.ReasonInvalidTarget,
				PeerInfo: peerid.Info{ID: hs.SenderPeerID},
			},
		})
		return false
	}

	// Step 6: partial edge signature.
	if !hs.PartialEdgeInfo.Verify(hs.SenderPeerID, c.opts.Local.ID) {
		c.ban(ban.New(ban.InvalidSignature, "handshake partial edge"))
		return true
	}

	// Step 7: outbound nonce echo.
	if c.opts.Type == peerid.Outbound && hs.PartialEdgeInfo.Nonce != c.hs.ourPartialEdge.Nonce {
		return true
	}

	// Step 8: provisional PeerInfo.
	listenAddr := ""
	if hs.SenderListenPort != 0 && c.opts.RemoteHost != "" {
		listenAddr = net.JoinHostPort(c.opts.RemoteHost, strconv.Itoa(int(hs.SenderListenPort)))
	}
	remoteInfo := peerid.Info{ID: hs.SenderPeerID, ListenAddr: listenAddr}

	if c.opts.Type == peerid.Inbound {
		// Sign the nonce the dialer proposed: it checks that our reply
		// echoes its own nonce (step 7 on its side).
		c.hs.ourPartialEdge = edge.NewPartialEdgeInfo(c.opts.Local, hs.SenderPeerID, hs.PartialEdgeInfo.Nonce)
	}

	// Step 9: register with the peer-manager.
	resp, err := c.peerManager.RegisterPeer(ctx, collab.RegisterPeerRequest{
		PeerInfo:        remoteInfo,
		Type:            c.opts.Type,
		ChainInfo:       hs.SenderChainInfo,
		PartialEdgeInfo: hs.PartialEdgeInfo,
	})
	if err != nil {
		c.log.Error("RegisterPeer failed", "err", err)
		return true
	}
	if resp.BanReason != nil {
		c.ban(*resp.BanReason)
		return true
	}
	if !resp.Accepted {
		return true
	}

	c.remotePeerID.Store(hs.SenderPeerID)
	c.status.Store(int32(peerid.Ready))
	c.metrics.ConnectionsAccepted.Inc(1)
	if c.opts.Type == peerid.Inbound {
		c.sendHandshake(hs.SenderPeerID)
	}
	return false
}

// handleHandshakeFailure implements spec.md §4.5's inbound HandshakeFailure
// rules.
func (c *Connection) handleHandshakeFailure(ctx context.Context, f wire.HandshakeFailure) bool {
	switch f.Reason.Kind {
	case wire.ReasonProtocolVersionMismatch:
		target := f.Reason.Version
		if c.opts.ProtocolVersion < target {
			target = c.opts.ProtocolVersion
		}
		floor := c.opts.OldestSupportedVersion
		if f.Reason.OldestSupportedVersion > floor {
			floor = f.Reason.OldestSupportedVersion
		}
		if target < floor {
			return true
		}
		c.hs.negotiatedVersion = target
		if c.opts.RemotePeerID != nil {
			c.sendHandshake(*c.opts.RemotePeerID)
		}
		return false
	case wire.ReasonGenesisMismatch:
		return true
	case wire.ReasonInvalidTarget:
		_ = c.peerManager.UpdatePeerInfo(ctx, f.Reason.PeerInfo)
		return true
	default:
		return true
	}
}

// handleLastEdge implements spec.md §4.5's inbound LastEdge rule, valid
// only on outbound connections: ask the peer-manager to produce a fresh
// edge via edge.next() and adopt its signed half on success.
func (c *Connection) handleLastEdge(ctx context.Context, le wire.LastEdge) bool {
	if c.opts.Type != peerid.Outbound {
		return true
	}
	if !le.Edge.Verify() {
		return true
	}
	fresh, err := c.peerManager.UpdateEdge(ctx, le.Edge.Next())
	if err != nil || fresh == nil {
		c.log.Warn("UpdateEdge failed", "err", err)
		return true
	}
	c.hs.ourPartialEdge = *fresh
	if c.opts.RemotePeerID != nil {
		c.sendHandshake(*c.opts.RemotePeerID)
	}
	return false
}
