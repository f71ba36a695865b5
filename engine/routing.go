package engine

import (
	"context"

	"github.com/ground-x/peerengine/ban"
	"github.com/ground-x/peerengine/wire"
)

// handleRouted implements spec.md §4.6's Routed(msg) case plus the §4.7
// Client/View-Client routing and flood-control policies for routed bodies.
func (c *Connection) handleRouted(ctx context.Context, msg wire.RoutedMessage) bool {
	ok, err := msg.Verify()
	if err != nil {
		c.log.Debug("routed message verify error", "err", err)
		return false
	}
	if !ok {
		c.ban(ban.New(ban.InvalidSignature, "routed message"))
		return true
	}

	hash, err := msg.Hash()
	if err != nil {
		c.log.Debug("routed message hash error", "err", err)
		return false
	}
	if c.dedupe.Seen(hash) {
		c.metrics.RoutedMessagesDeduped.Inc(1)
		return false
	}

	forMe, err := c.peerManager.RoutedMessageFrom(ctx, msg)
	if err != nil {
		c.log.Warn("RoutedMessageFrom failed", "err", err)
		return false
	}
	if !forMe {
		return false // peer-manager owns onward routing
	}

	if _, ok := msg.Body.(wire.ForwardTx); ok {
		if c.shared.TxnsSinceLastBlock.Load() > c.opts.Config.MaxTransactionsPerBlockMessage {
			c.log.Debug("dropping ForwardTx, transaction-storm ceiling exceeded")
			return false
		}
		c.shared.TxnsSinceLastBlock.Inc()
	}

	return c.dispatchRoutedBody(ctx, msg, hash)
}

// dispatchRoutedBody routes one routed sub-message to the view-client or
// client per spec.md §4.7, replying through the peer-manager's RouteBack
// for view-client queries.
func (c *Connection) dispatchRoutedBody(ctx context.Context, msg wire.RoutedMessage, originalHash wire.Hash) bool {
	switch body := msg.Body.(type) {
	case wire.TxStatusRequest:
		payload, err := c.viewClient.TxStatusRequest(ctx, body.AccountID, body.TxHash)
		if err != nil {
			c.log.Warn("TxStatusRequest failed", "err", err)
			return false
		}
		c.routeBack(ctx, wire.TxStatusResponse{Payload: payload}, originalHash)
		return false

	case wire.ReceiptOutcomeRequest:
		payload, err := c.viewClient.ReceiptOutcomeRequest(ctx, body.ReceiptID)
		if err != nil {
			c.log.Warn("ReceiptOutcomeRequest failed", "err", err)
			return false
		}
		// No dedicated ReceiptOutcomeResponse body is in the wire
		// vocabulary (spec.md §6 pairs it with no named response type);
		// TxStatusResponse's opaque payload shape is reused for it.
		c.routeBack(ctx, wire.TxStatusResponse{Payload: payload}, originalHash)
		return false

	case wire.StateRequestHeader:
		payload, err := c.viewClient.StateRequestHeader(ctx, body.ShardID, body.SyncHash)
		if err != nil {
			c.log.Warn("StateRequestHeader failed", "err", err)
			return false
		}
		c.routeBack(ctx, wire.StateResponse{Payload: payload}, originalHash)
		return false

	case wire.StateRequestPart:
		payload, err := c.viewClient.StateRequestPart(ctx, body.ShardID, body.SyncHash, body.PartID)
		if err != nil {
			c.log.Warn("StateRequestPart failed", "err", err)
			return false
		}
		c.routeBack(ctx, wire.StateResponse{Payload: payload}, originalHash)
		return false

	case wire.BlockApproval:
		return c.dispatchVerdict(c.client.BlockApproval(ctx, msg.Author, body.Payload))

	case wire.ForwardTx:
		return c.dispatchVerdict(c.client.ForwardTx(ctx, body.Transaction))

	case wire.StateResponse:
		return c.dispatchVerdict(c.client.StateResponse(ctx, body.Payload))

	case wire.VersionedStateResponse:
		return c.dispatchVerdict(c.client.VersionedStateResponse(ctx, body.Version, body.Payload))

	case wire.PartialEncodedChunkRequest:
		return c.dispatchVerdict(c.client.PartialEncodedChunkRequest(ctx, body.ChunkHash, body.Parts))

	case wire.PartialEncodedChunkResponse:
		return c.dispatchVerdict(c.client.PartialEncodedChunkResponse(ctx, body.ChunkHash, body.Payload))

	case wire.PartialEncodedChunk:
		return c.dispatchVerdict(c.client.PartialEncodedChunk(ctx, body.ChunkHash, body.Payload))

	case wire.VersionedPartialEncodedChunk:
		return c.dispatchVerdict(c.client.VersionedPartialEncodedChunk(ctx, body.ChunkHash, body.Version, body.Payload))

	case wire.PartialEncodedChunkForward:
		return c.dispatchVerdict(c.client.PartialEncodedChunkForward(ctx, body.ChunkHash, body.Parts, body.Payload))

	case wire.TxStatusResponse:
		if err := c.viewClient.TxStatusResponse(ctx, body.Payload); err != nil {
			c.log.Warn("TxStatusResponse delivery failed", "err", err)
		}
		return false

	case wire.QueryResponse:
		if err := c.viewClient.QueryResponse(ctx, body.QueryID, body.Payload); err != nil {
			c.log.Warn("QueryResponse delivery failed", "err", err)
		}
		return false

	default:
		c.log.Debug("routed body with no local recipient, dropping", "kind", msg.Body.RoutedKind())
		return false
	}
}

// routeBack asks the peer-manager to deliver body back to the original
// routed message's author (spec.md §4.7's RouteBack(body, original_hash)).
func (c *Connection) routeBack(ctx context.Context, body wire.RoutedBody, originalHash wire.Hash) {
	if err := c.peerManager.RouteBack(ctx, body, originalHash); err != nil {
		c.log.Warn("RouteBack failed", "err", err)
	}
}
