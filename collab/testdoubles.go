package collab

import (
	"context"
	"sync"
	"time"

	"github.com/ground-x/peerengine/ban"
	"github.com/ground-x/peerengine/edge"
	"github.com/ground-x/peerengine/peerid"
	"github.com/ground-x/peerengine/wire"
)

// FakePeerManager is an in-memory PeerManager double for tests (spec.md
// §9's design note: "test doubles replace these with in-memory queues; the
// engine code is unchanged"). Canned responses are set directly on the
// exported fields before use. RegisterPeer, Unregister, Ban, RouteBack,
// SyncRoutingTable, UpdateEdge and ReceivedMessage calls are also recorded
// for assertions; the other methods record nothing.
type FakePeerManager struct {
	mu sync.Mutex

	RegisterResponse RegisterPeerResponse
	RegisterErr      error
	UpdateNonceEdge  *edge.Edge
	UpdateNonceBan   *ban.Reason
	RouteBackErr     error
	RoutedForMe      bool
	RoutedForMeErr   error
	PeersResponseOut []peerid.Info
	UpdateEdgeResult *edge.PartialEdgeInfo
	UpdateEdgeErr    error

	Registered       []RegisterPeerRequest
	Unregistered     []UnregisterRequest
	Banned           []struct {
		Peer   peerid.ID
		Reason ban.Reason
	}
	RoutedBacks  []wire.RoutedBody
	Received     []peerid.ID
	SyncedTables []wire.RoutingTableUpdate
	UpdatedEdges []edge.Edge
}

func NewFakePeerManager() *FakePeerManager {
	return &FakePeerManager{RegisterResponse: RegisterPeerResponse{Accepted: true}}
}

func (f *FakePeerManager) RegisterPeer(ctx context.Context, req RegisterPeerRequest) (RegisterPeerResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Registered = append(f.Registered, req)
	return f.RegisterResponse, f.RegisterErr
}

func (f *FakePeerManager) Unregister(ctx context.Context, req UnregisterRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Unregistered = append(f.Unregistered, req)
	return nil
}

func (f *FakePeerManager) Ban(ctx context.Context, peer peerid.ID, reason ban.Reason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Banned = append(f.Banned, struct {
		Peer   peerid.ID
		Reason ban.Reason
	}{peer, reason})
	return nil
}

func (f *FakePeerManager) RouteBack(ctx context.Context, body wire.RoutedBody, originalHash wire.Hash) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RoutedBacks = append(f.RoutedBacks, body)
	return f.RouteBackErr
}

func (f *FakePeerManager) RoutedMessageFrom(ctx context.Context, msg wire.RoutedMessage) (bool, error) {
	return f.RoutedForMe, f.RoutedForMeErr
}

func (f *FakePeerManager) PeersRequest(ctx context.Context) ([]peerid.Info, error) {
	return f.PeersResponseOut, nil
}

func (f *FakePeerManager) PeersResponse(ctx context.Context, peers []peerid.Info) error {
	return nil
}

func (f *FakePeerManager) SyncRoutingTable(ctx context.Context, update wire.RoutingTableUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SyncedTables = append(f.SyncedTables, update)
	return nil
}

func (f *FakePeerManager) RequestUpdateNonce(ctx context.Context, info edge.PartialEdgeInfo) (*edge.Edge, *ban.Reason, error) {
	return f.UpdateNonceEdge, f.UpdateNonceBan, nil
}

func (f *FakePeerManager) ResponseUpdateNonce(ctx context.Context, e edge.Edge) error { return nil }

func (f *FakePeerManager) UpdatePeerInfo(ctx context.Context, info peerid.Info) error { return nil }

func (f *FakePeerManager) UpdateEdge(ctx context.Context, e edge.Edge) (*edge.PartialEdgeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdatedEdges = append(f.UpdatedEdges, e)
	return f.UpdateEdgeResult, f.UpdateEdgeErr
}

func (f *FakePeerManager) ReceivedMessage(ctx context.Context, peer peerid.ID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Received = append(f.Received, peer)
	return nil
}

// FakeClient is an in-memory Client double. Verdict defaults to Ok unless
// NextVerdict is set.
type FakeClient struct {
	mu          sync.Mutex
	NextVerdict Verdict

	Blocks       []wire.Block
	Transactions []wire.Transaction
	ForwardedTxs []wire.Transaction
}

func NewFakeClient() *FakeClient { return &FakeClient{NextVerdict: Ok()} }

func (f *FakeClient) verdict() Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.NextVerdict
}

func (f *FakeClient) Block(ctx context.Context, block wire.Block) Verdict {
	f.mu.Lock()
	f.Blocks = append(f.Blocks, block)
	f.mu.Unlock()
	return f.verdict()
}

func (f *FakeClient) Transaction(ctx context.Context, tx wire.Transaction) Verdict {
	f.mu.Lock()
	f.Transactions = append(f.Transactions, tx)
	f.mu.Unlock()
	return f.verdict()
}

func (f *FakeClient) BlockHeaders(ctx context.Context, headers []wire.BlockHeader) Verdict {
	return f.verdict()
}

func (f *FakeClient) Challenge(ctx context.Context, challenge wire.Challenge) Verdict {
	return f.verdict()
}

func (f *FakeClient) EpochSyncResponse(ctx context.Context, resp wire.EpochSyncResponse) Verdict {
	return f.verdict()
}

func (f *FakeClient) EpochSyncFinalizationResponse(ctx context.Context, resp wire.EpochSyncFinalizationResponse) Verdict {
	return f.verdict()
}

func (f *FakeClient) BlockApproval(ctx context.Context, author peerid.ID, payload []byte) Verdict {
	return f.verdict()
}

func (f *FakeClient) ForwardTx(ctx context.Context, tx wire.Transaction) Verdict {
	f.mu.Lock()
	f.ForwardedTxs = append(f.ForwardedTxs, tx)
	f.mu.Unlock()
	return f.verdict()
}

func (f *FakeClient) StateResponse(ctx context.Context, payload []byte) Verdict { return f.verdict() }

func (f *FakeClient) VersionedStateResponse(ctx context.Context, version uint32, payload []byte) Verdict {
	return f.verdict()
}

func (f *FakeClient) PartialEncodedChunkRequest(ctx context.Context, chunkHash wire.Hash, parts []uint64) Verdict {
	return f.verdict()
}

func (f *FakeClient) PartialEncodedChunkResponse(ctx context.Context, chunkHash wire.Hash, payload []byte) Verdict {
	return f.verdict()
}

func (f *FakeClient) PartialEncodedChunk(ctx context.Context, chunkHash wire.Hash, payload []byte) Verdict {
	return f.verdict()
}

func (f *FakeClient) VersionedPartialEncodedChunk(ctx context.Context, chunkHash wire.Hash, version uint32, payload []byte) Verdict {
	return f.verdict()
}

func (f *FakeClient) PartialEncodedChunkForward(ctx context.Context, chunkHash wire.Hash, parts []uint64, payload []byte) Verdict {
	return f.verdict()
}

// FakeViewClient is an in-memory ViewClient double.
type FakeViewClient struct {
	mu                sync.Mutex
	ChainInfo         wire.ChainInfo
	Blocks            map[wire.Hash]wire.Block
	Headers           map[wire.Hash]wire.BlockHeader
	TxStatusResponses [][]byte
	QueryResponses    []struct {
		QueryID string
		Payload []byte
	}
}

func NewFakeViewClient(chainInfo wire.ChainInfo) *FakeViewClient {
	return &FakeViewClient{
		ChainInfo: chainInfo,
		Blocks:    make(map[wire.Hash]wire.Block),
		Headers:   make(map[wire.Hash]wire.BlockHeader),
	}
}

func (f *FakeViewClient) GetChainInfo(ctx context.Context) (wire.ChainInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ChainInfo, nil
}

func (f *FakeViewClient) BlockRequest(ctx context.Context, hash wire.Hash) (wire.Block, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.Blocks[hash]
	return b, ok, nil
}

func (f *FakeViewClient) BlockHeadersRequest(ctx context.Context, hashes []wire.Hash) ([]wire.BlockHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []wire.BlockHeader
	for _, h := range hashes {
		if hdr, ok := f.Headers[h]; ok {
			out = append(out, hdr)
		}
	}
	return out, nil
}

func (f *FakeViewClient) TxStatusRequest(ctx context.Context, accountID string, txHash wire.Hash) ([]byte, error) {
	return nil, nil
}

func (f *FakeViewClient) ReceiptOutcomeRequest(ctx context.Context, receiptID wire.Hash) ([]byte, error) {
	return nil, nil
}

func (f *FakeViewClient) StateRequestHeader(ctx context.Context, shardID uint64, syncHash wire.Hash) ([]byte, error) {
	return nil, nil
}

func (f *FakeViewClient) StateRequestPart(ctx context.Context, shardID uint64, syncHash wire.Hash, partID uint64) ([]byte, error) {
	return nil, nil
}

func (f *FakeViewClient) EpochSyncRequest(ctx context.Context, epochID wire.Hash) (wire.EpochSyncResponse, error) {
	return wire.EpochSyncResponse{}, nil
}

func (f *FakeViewClient) EpochSyncFinalizationRequest(ctx context.Context, epochID wire.Hash) (wire.EpochSyncFinalizationResponse, error) {
	return wire.EpochSyncFinalizationResponse{}, nil
}

func (f *FakeViewClient) TxStatusResponse(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TxStatusResponses = append(f.TxStatusResponses, payload)
	return nil
}

func (f *FakeViewClient) QueryResponse(ctx context.Context, queryID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryResponses = append(f.QueryResponses, struct {
		QueryID string
		Payload []byte
	}{queryID, payload})
	return nil
}
