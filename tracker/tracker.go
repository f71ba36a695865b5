// Package tracker implements the per-connection traffic and block-relay
// bookkeeping of spec.md §4.3: a 60-second sliding-window byte/message
// counter for both directions, plus bounded sets of recently-received
// blocks and outstanding block requests used to decide whether a Block or
// BlockRequest is worth sending again. The sliding window is grounded on
// the teacher's fixed-duration telemetry buckets (node/cn/peer.go's known
// block/tx caches, newKnownBlockCache/newKnownTxCache); the bounded sets
// are built through cache.LRUConfig (adapted from common/cache.go) rather
// than calling hashicorp/golang-lru directly.
package tracker

import (
	"sync"
	"time"

	"github.com/ground-x/peerengine/cache"
	"github.com/ground-x/peerengine/wire"
)

const (
	windowDuration = 60 * time.Second
	numBuckets     = 60 // one bucket per second of the window
)

type bucket struct {
	start time.Time
	bytes uint64
	count uint64
}

// direction is a one-way sliding-window counter.
type direction struct {
	mu      sync.Mutex
	buckets []bucket
}

func newDirection() *direction {
	return &direction{buckets: make([]bucket, numBuckets)}
}

func (d *direction) record(now time.Time, n uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := bucketIndex(now)
	b := &d.buckets[idx]
	if now.Sub(b.start) >= windowDuration/numBuckets || b.start.IsZero() || now.Before(b.start) {
		b.start = now
		b.bytes = 0
		b.count = 0
	}
	b.bytes += n
	b.count++
}

func (d *direction) totals(now time.Time) (bytes uint64, count uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := now.Add(-windowDuration)
	for _, b := range d.buckets {
		if b.start.After(cutoff) {
			bytes += b.bytes
			count += b.count
		}
	}
	return
}

func bucketIndex(t time.Time) int {
	return int(t.Unix() % int64(numBuckets))
}

// Tracker is the per-connection traffic and block-relay tracker.
type Tracker struct {
	sent     *direction
	received *direction

	recentBlocks cache.Cache // wire.Hash -> struct{}
	outstanding  cache.Cache // wire.Hash -> time.Time (requested at)
}

const (
	defaultRecentBlocksSize     = 64
	defaultOutstandingBlockReqs = 64
)

// New builds a Tracker with the default bounded-set sizes.
func New() *Tracker {
	recent, _ := cache.NewCache(cache.LRUConfig{CacheSize: defaultRecentBlocksSize})
	outstanding, _ := cache.NewCache(cache.LRUConfig{CacheSize: defaultOutstandingBlockReqs})
	return &Tracker{
		sent:         newDirection(),
		received:     newDirection(),
		recentBlocks: recent,
		outstanding:  outstanding,
	}
}

// RecordSent registers n bytes / one message sent just now.
func (t *Tracker) RecordSent(n int) { t.sent.record(time.Now(), uint64(n)) }

// RecordReceived registers n bytes / one message received just now.
func (t *Tracker) RecordReceived(n int) { t.received.record(time.Now(), uint64(n)) }

// SentStats returns the bytes and message count sent within the trailing
// 60-second window.
func (t *Tracker) SentStats() (bytes uint64, count uint64) { return t.sent.totals(time.Now()) }

// ReceivedStats returns the bytes and message count received within the
// trailing 60-second window.
func (t *Tracker) ReceivedStats() (bytes uint64, count uint64) { return t.received.totals(time.Now()) }

// MarkBlockReceived records that hash was received, so a later Block
// message for the same hash can be recognized as redundant.
func (t *Tracker) MarkBlockReceived(hash wire.Hash) { t.recentBlocks.Add(hash, struct{}{}) }

// HasRecentBlock reports whether hash was recently received.
func (t *Tracker) HasRecentBlock(hash wire.Hash) bool { return t.recentBlocks.Contains(hash) }

// MarkBlockRequested records that a BlockRequest for hash is outstanding.
func (t *Tracker) MarkBlockRequested(hash wire.Hash) { t.outstanding.Add(hash, time.Now()) }

// IsBlockRequestOutstanding reports whether a BlockRequest for hash is
// still awaiting a response.
func (t *Tracker) IsBlockRequestOutstanding(hash wire.Hash) bool {
	return t.outstanding.Contains(hash)
}

// ClearBlockRequest removes hash from the outstanding-request set, once its
// Block response (or a failure) has been handled.
func (t *Tracker) ClearBlockRequest(hash wire.Hash) { t.outstanding.Remove(hash) }
