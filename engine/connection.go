package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/ground-x/peerengine/ban"
	"github.com/ground-x/peerengine/collab"
	"github.com/ground-x/peerengine/config"
	"github.com/ground-x/peerengine/dedupe"
	"github.com/ground-x/peerengine/edge"
	"github.com/ground-x/peerengine/log"
	"github.com/ground-x/peerengine/metrics"
	"github.com/ground-x/peerengine/peerid"
	"github.com/ground-x/peerengine/throttle"
	"github.com/ground-x/peerengine/tracker"
	"github.com/ground-x/peerengine/wire"
)

const sendBufferSize = 256

// Collaborators bundles the three external actors a Connection talks to
// (spec.md §6, §9).
type Collaborators struct {
	PeerManager collab.PeerManager
	Client      collab.Client
	ViewClient  collab.ViewClient
}

// Options configures one Connection.
type Options struct {
	Config        *config.Config
	Local         *peerid.KeyPair
	Type          peerid.Type // Inbound or Outbound
	Collaborators Collaborators
	Shared        *Shared
	Metrics       *metrics.Registry
	Throttle      *throttle.Controller

	// LocalListenAddr/LocalAccountID are advertised in our own PeerInfo.
	LocalListenAddr string
	LocalAccountID  string

	// RemotePeerID is the dialed peer's identity, required for Outbound
	// connections (spec.md §4.5 step 9's handshake target). Unused for
	// Inbound, where the remote identifies itself in its Handshake.
	RemotePeerID *peerid.ID

	// RemoteHost is the remote's IP/hostname as seen by the transport,
	// used together with the remote's advertised listen port to build its
	// PeerInfo.ListenAddr (spec.md §4.5 step 8).
	RemoteHost string

	// OutboundNonce seeds PartialEdgeInfo.Nonce for an outbound connection;
	// callers own nonce bookkeeping across reconnects (spec.md §3).
	OutboundNonce uint64

	// ProtocolVersion / OldestSupportedVersion are the local node's version
	// window (spec.md S2).
	ProtocolVersion        uint32
	OldestSupportedVersion uint32
}

// Connection is one peer connection's protocol actor: a single goroutine
// owns all of its mutable state (spec.md §5); Status and Stats are the only
// fields queried from other goroutines, hence the atomics.
type Connection struct {
	opts Options
	log  *log.Logger

	rw       io.ReadWriteCloser
	frames   *wire.FrameCodec
	msgCodec *wire.MessageCodec

	peerManager collab.PeerManager
	client      collab.Client
	viewClient  collab.ViewClient

	shared   *Shared
	metrics  *metrics.Registry
	throttle *throttle.Controller
	tracker  *tracker.Tracker
	dedupe   *dedupe.Cache

	status       atomic.Int32 // peerid.Status
	banReason    atomic.Value // ban.Reason, set iff status == Banned
	remotePeerID atomic.Value // peerid.ID, set once handshake completes

	outbox chan outboundFrame
	term   chan struct{}
	closeOnce sync.Once

	// handshake-local state; only ever touched by the run goroutine.
	hs handshakeState

	lastReceivedUpdate    time.Time
	lastPeersRequestReply time.Time
}

type outboundFrame struct {
	payload []byte
}

// NewConnection wires up a Connection over rw, ready to Run.
func NewConnection(rw io.ReadWriteCloser, opts Options) *Connection {
	cfg := opts.Config
	c := &Connection{
		opts:        opts,
		log:         log.NewModuleLogger(log.Engine),
		rw:          rw,
		frames:      wire.NewFrameCodec(rw, rw, cfg.MaxFrameSize),
		msgCodec:    wire.NewMessageCodec(cfg.ForceEncoding),
		peerManager: opts.Collaborators.PeerManager,
		client:      opts.Collaborators.Client,
		viewClient:  opts.Collaborators.ViewClient,
		shared:      opts.Shared,
		metrics:     opts.Metrics,
		throttle:    opts.Throttle,
		tracker:     tracker.New(),
		outbox:      make(chan outboundFrame, sendBufferSize),
		term:        make(chan struct{}),
	}
	dd, _ := dedupe.New(cfg.RoutedMessageCacheSize, cfg.DropDuplicatedMessagesPeriod)
	c.dedupe = dd
	c.status.Store(int32(peerid.Connecting))
	return c
}

// Status reports the connection's current lifecycle state. Safe to call
// from any goroutine.
func (c *Connection) Status() peerid.Status { return peerid.Status(c.status.Load()) }

// Stats is a point-in-time snapshot for observability/debugging, the
// supplemented query SPEC_FULL.md adds alongside the metrics registry.
type Stats struct {
	Status           peerid.Status
	RemotePeerID     *peerid.ID
	Encoding         wire.Encoding
	SentBytes        uint64
	SentMessages     uint64
	ReceivedBytes    uint64
	ReceivedMessages uint64
}

// Stats snapshots traffic counters and status. Safe to call concurrently
// with Run.
func (c *Connection) Stats() Stats {
	sb, sc := c.tracker.SentStats()
	rb, rc := c.tracker.ReceivedStats()
	s := Stats{
		Status:           c.Status(),
		Encoding:         c.msgCodec.Effective(),
		SentBytes:        sb,
		SentMessages:     sc,
		ReceivedBytes:    rb,
		ReceivedMessages: rc,
	}
	if v := c.remotePeerID.Load(); v != nil {
		id := v.(peerid.ID)
		s.RemotePeerID = &id
	}
	return s
}

// Send enqueues msg on the outbound path. Per spec.md §5, sending is
// non-blocking: if the buffer is full the frame is dropped and a typed send
// error is logged; there is no retry at this layer.
func (c *Connection) Send(msg wire.Message) {
	frames, err := c.msgCodec.Encode(msg)
	if err != nil {
		c.log.Warn("encode failed", "kind", msg.Kind(), "err", err)
		return
	}
	for _, f := range frames {
		select {
		case c.outbox <- outboundFrame{payload: f}:
		default:
			c.log.Warn("send buffer full, dropping frame", "kind", msg.Kind())
		}
	}
}

// Run drives the connection until ctx is cancelled, the peer closes the
// stream, or the connection is banned/closed. It is meant to be called from
// its own goroutine; Run owns all per-connection mutable state from here on.
func (c *Connection) Run(ctx context.Context) {
	c.shared.PeerCounter.Inc()
	defer c.shared.PeerCounter.Dec()
	defer c.teardown(ctx)

	if c.opts.Type == peerid.Outbound {
		if err := c.beginOutboundHandshake(ctx); err != nil {
			c.log.Warn("outbound handshake init failed", "err", err)
			return
		}
	}

	handshakeTimeout := c.opts.Config.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = config.DefaultHandshakeTimeout
	}
	timer := time.NewTimer(handshakeTimeout)
	defer timer.Stop()

	readErrs := make(chan error, 1)
	frames := make(chan []byte, 1)
	go c.readLoop(ctx, frames, readErrs)

	writer := make(chan error, 1)
	go c.writeLoop(writer)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.term:
			return
		case err := <-readErrs:
			if err != nil {
				c.log.Debug("read loop ended", "err", err)
			}
			return
		case err := <-writer:
			if err != nil {
				c.log.Warn("write loop ended", "err", err)
			}
			return
		case payload := <-frames:
			c.tracker.RecordReceived(len(payload))
			c.metrics.BytesReceived.Inc(int64(len(payload)))
			msg, err := c.msgCodec.Decode(payload)
			if err != nil {
				c.log.Debug("parse error, dropping frame", "err", err)
				continue
			}
			c.metrics.MessagesReceived.Inc(1)
			c.metrics.CountKind(uint8(msg.Kind()))
			if c.handleInbound(ctx, msg) {
				return // banned or explicitly closed
			}
		case <-timer.C:
			if c.Status() == peerid.Connecting {
				c.log.Debug("handshake timed out")
				return
			}
		}
	}
}

// readLoop is the only suspension point reading from the wire (spec.md
// §5's suspension point (a)); it is a separate goroutine purely because Go
// has no cooperative single-threaded scheduler, not because the protocol
// allows concurrent state mutation. Everything it produces crosses back
// into the Run goroutine over frames/readErrs.
func (c *Connection) readLoop(ctx context.Context, frames chan<- []byte, errs chan<- error) {
	for {
		payload, reason, err := c.frames.ReadFrame()
		if reason != nil {
			c.banLocked(*reason)
			errs <- err
			return
		}
		if err != nil {
			errs <- err
			return
		}
		if c.throttle != nil {
			if err := c.throttle.Wait(ctx, len(payload)); err != nil {
				errs <- err
				return
			}
		}
		select {
		case frames <- payload:
		case <-c.term:
			return
		}
	}
}

func (c *Connection) writeLoop(errs chan<- error) {
	for {
		select {
		case f := <-c.outbox:
			if err := c.frames.WriteFrame(f.payload); err != nil {
				errs <- err
				return
			}
			c.tracker.RecordSent(len(f.payload))
			c.metrics.BytesSent.Inc(int64(len(f.payload)))
			c.metrics.MessagesSent.Inc(1)
		case <-c.term:
			return
		}
	}
}

// ban transitions the connection to Banned and schedules teardown. It may
// be called from the Run goroutine (the common case) or, for a malformed
// frame detected mid-read, from readLoop; banLocked is safe from either
// since it only touches the atomics and closes term once.
func (c *Connection) ban(reason ban.Reason) { c.banLocked(reason) }

func (c *Connection) banLocked(reason ban.Reason) {
	c.status.Store(int32(peerid.Banned))
	c.banReason.Store(reason)
	c.metrics.ConnectionsBanned.Inc(1)
	c.closeOnce.Do(func() { close(c.term) })
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.term) })
}

// Stop requests a graceful shutdown: teardown proceeds once the outbound
// buffer drains or Config.StopGraceDuration elapses, whichever is first
// (SPEC_FULL.md supplemented feature #5). Send keeps accepting frames while
// Stop waits, so frames enqueued meanwhile also have to drain.
func (c *Connection) Stop(ctx context.Context) {
	grace := c.opts.Config.StopGraceDuration
	if grace <= 0 {
		grace = config.DefaultStopGraceDuration
	}
	deadline := time.After(grace)
	drained := time.NewTicker(5 * time.Millisecond)
	defer drained.Stop()
	for {
		select {
		case <-deadline:
			c.close()
			return
		case <-c.term:
			return
		case <-ctx.Done():
			c.close()
			return
		case <-drained.C:
			if len(c.outbox) == 0 {
				c.close()
				return
			}
		}
	}
}

// teardown runs once, when Run returns for any reason, and notifies the
// peer-manager per spec.md §4.8.
func (c *Connection) teardown(ctx context.Context) {
	c.close()
	status := c.Status()
	if status == peerid.Banned {
		reason, _ := c.banReason.Load().(ban.Reason)
		if id := c.remoteID(); id != nil {
			_ = c.peerManager.Ban(ctx, *id, reason)
		}
		return
	}
	c.metrics.ConnectionsClosed.Inc(1)
	id := c.remoteID()
	if id == nil {
		return // never identified the remote; nothing to unregister
	}
	_ = c.peerManager.Unregister(ctx, collab.UnregisterRequest{
		PeerID:              *id,
		PeerType:            c.opts.Type,
		RemoveFromPeerStore: status != peerid.Connecting,
	})
}

func (c *Connection) remoteID() *peerid.ID {
	v := c.remotePeerID.Load()
	if v == nil {
		return nil
	}
	id := v.(peerid.ID)
	return &id
}

// newPartialEdgeInfo builds an outbound connection's partial edge from
// Options.OutboundNonce. Inbound connections sign the remote's proposed
// nonce instead (see handleHandshake).
func (c *Connection) newPartialEdgeInfo(remote peerid.ID) edge.PartialEdgeInfo {
	return edge.NewPartialEdgeInfo(c.opts.Local, remote, c.opts.OutboundNonce)
}
