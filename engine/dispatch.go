package engine

import (
	"context"
	"time"

	"github.com/ground-x/peerengine/collab"
	"github.com/ground-x/peerengine/peerid"
	"github.com/ground-x/peerengine/wire"
)

// handleInbound classifies one decoded message and routes it per spec.md
// §4.5 (Connecting) or §4.6-§4.7 (Ready). It returns true when the
// connection must tear down as a result (ban, explicit close, or
// Disconnect).
func (c *Connection) handleInbound(ctx context.Context, msg wire.Message) bool {
	if c.Status() != peerid.Ready {
		switch m := msg.(type) {
		case wire.Handshake:
			return c.handleHandshake(ctx, m)
		case wire.HandshakeFailure:
			return c.handleHandshakeFailure(ctx, m)
		case wire.LastEdge:
			return c.handleLastEdge(ctx, m)
		default:
			c.log.Debug("ignored in non-Ready state", "kind", msg.Kind())
			return false
		}
	}
	return c.handleReady(ctx, msg)
}

// handleReady implements the Ready-state Inbound Dispatcher (spec.md §4.6).
func (c *Connection) handleReady(ctx context.Context, msg wire.Message) bool {
	c.noteReceivedTraffic(ctx)

	switch m := msg.(type) {
	case wire.Handshake:
		c.log.Debug("duplicate handshake in Ready, ignoring")
		return false

	case wire.Disconnect:
		return true

	case wire.PeersRequest:
		debounce := c.opts.Config.PeersRequestDebounce
		if debounce > 0 && time.Since(c.lastPeersRequestReply) < debounce {
			c.log.Debug("debouncing repeated PeersRequest")
			return false
		}
		peers, err := c.peerManager.PeersRequest(ctx)
		if err != nil {
			c.log.Warn("PeersRequest failed", "err", err)
			return false
		}
		if len(peers) > 0 {
			c.Send(wire.PeersResponse{Peers: peers})
		}
		c.lastPeersRequestReply = time.Now()
		return false

	case wire.PeersResponse:
		_ = c.peerManager.PeersResponse(ctx, m.Peers)
		return false

	case wire.RequestUpdateNonce:
		e, reason, err := c.peerManager.RequestUpdateNonce(ctx, m.PartialEdgeInfo)
		if err != nil {
			c.log.Warn("RequestUpdateNonce failed", "err", err)
			return false
		}
		if reason != nil {
			c.ban(*reason)
			return true
		}
		if e != nil {
			c.Send(wire.ResponseUpdateNonce{Edge: *e})
		}
		return false

	case wire.ResponseUpdateNonce:
		_ = c.peerManager.ResponseUpdateNonce(ctx, m.Edge)
		return false

	case wire.SyncRoutingTable:
		_ = c.peerManager.SyncRoutingTable(ctx, m.Update)
		return false

	case wire.Routed:
		return c.handleRouted(ctx, m.Message)

	case wire.BlockMsg:
		return c.dispatchBlock(ctx, m)
	case wire.TransactionMsg:
		return c.dispatchVerdict(c.client.Transaction(ctx, m.Transaction))
	case wire.BlockHeaders:
		return c.dispatchVerdict(c.client.BlockHeaders(ctx, m.Headers))
	case wire.ChallengeMsg:
		return c.dispatchVerdict(c.client.Challenge(ctx, m.Challenge))
	case wire.EpochSyncResponseMsg:
		return c.dispatchVerdict(c.client.EpochSyncResponse(ctx, m.Response))
	case wire.EpochSyncFinalizationResponseMsg:
		return c.dispatchVerdict(c.client.EpochSyncFinalizationResponse(ctx, m.Response))

	case wire.BlockRequest:
		return c.dispatchBlockRequest(ctx, m)
	case wire.BlockHeadersRequest:
		headers, err := c.viewClient.BlockHeadersRequest(ctx, m.Hashes)
		if err != nil {
			c.log.Warn("BlockHeadersRequest failed", "err", err)
			return false
		}
		c.Send(wire.BlockHeaders{Headers: headers})
		return false
	case wire.EpochSyncRequest:
		resp, err := c.viewClient.EpochSyncRequest(ctx, m.EpochID)
		if err != nil {
			c.log.Warn("EpochSyncRequest failed", "err", err)
			return false
		}
		c.Send(wire.EpochSyncResponseMsg{Response: resp})
		return false
	case wire.EpochSyncFinalizationRequest:
		resp, err := c.viewClient.EpochSyncFinalizationRequest(ctx, m.EpochID)
		if err != nil {
			c.log.Warn("EpochSyncFinalizationRequest failed", "err", err)
			return false
		}
		c.Send(wire.EpochSyncFinalizationResponseMsg{Response: resp})
		return false

	default:
		c.log.Debug("unhandled message kind in Ready", "kind", msg.Kind())
		return false
	}
}

// noteReceivedTraffic implements spec.md §4.8's "on receiving any traffic
// in Ready, at most once every UPDATE_INTERVAL_LAST_TIME_RECEIVED_MESSAGE"
// peer-manager notification.
func (c *Connection) noteReceivedTraffic(ctx context.Context) {
	interval := c.opts.Config.ReceivedMessageUpdateInterval
	now := time.Now()
	if interval > 0 && now.Sub(c.lastReceivedUpdate) < interval {
		return
	}
	c.lastReceivedUpdate = now
	id := c.remoteID()
	if id == nil {
		return
	}
	if err := c.peerManager.ReceivedMessage(ctx, *id, now); err != nil {
		c.log.Debug("ReceivedMessage notification failed", "err", err)
	}
}

// dispatchVerdict applies a collab.Verdict the way every client-routed
// message resolves (spec.md §4.7): Ban closes the connection, InvalidTx is
// logged, Ok/Ignored do nothing further.
func (c *Connection) dispatchVerdict(v collab.Verdict) bool {
	switch v.Kind {
	case collab.VerdictBan:
		c.ban(v.Reason)
		return true
	case collab.VerdictInvalidTx:
		c.log.Debug("invalid tx", "err", v.Err)
		return false
	default:
		return false
	}
}

// dispatchBlock implements the top-level Block message: record the hash as
// recently received so a later send of the same block to this peer can be
// suppressed (spec.md §4.3), clear any outstanding request for it, reset the
// shared transaction-storm counter (spec.md §4.7), then deliver to the
// client.
func (c *Connection) dispatchBlock(ctx context.Context, m wire.BlockMsg) bool {
	c.tracker.MarkBlockReceived(m.Block.Header.Hash)
	c.tracker.ClearBlockRequest(m.Block.Header.Hash)
	c.shared.TxnsSinceLastBlock.Store(0)
	return c.dispatchVerdict(c.client.Block(ctx, m.Block))
}

func (c *Connection) dispatchBlockRequest(ctx context.Context, m wire.BlockRequest) bool {
	block, ok, err := c.viewClient.BlockRequest(ctx, m.Hash)
	if err != nil {
		c.log.Warn("BlockRequest failed", "err", err)
		return false
	}
	if !ok {
		return false
	}
	c.SendBlock(block)
	return false
}

// SendBlock implements spec.md §4.3's block-dedup-on-send policy: suppress
// sending a Block whose hash we recently received from this same peer.
func (c *Connection) SendBlock(block wire.Block) {
	if c.tracker.HasRecentBlock(block.Header.Hash) {
		c.log.Debug("suppressing redundant block send", "hash", block.Header.Hash)
		return
	}
	c.Send(wire.BlockMsg{Block: block})
}

// SendBlockRequest implements spec.md §4.3's "record outbound BlockRequest
// hashes" policy: a hash already awaiting a response from this peer isn't
// asked for again.
func (c *Connection) SendBlockRequest(hash wire.Hash) {
	if c.tracker.IsBlockRequestOutstanding(hash) {
		c.log.Debug("BlockRequest already outstanding, not re-sending", "hash", hash)
		return
	}
	c.tracker.MarkBlockRequested(hash)
	c.Send(wire.BlockRequest{Hash: hash})
}
