// Package dedupe implements the routed-message dedup cache (spec.md §4.4):
// a bounded cache of recently seen (author, target, body) digests, used to
// drop a RoutedMessage the engine has already relayed within the last
// DropDuplicatedMessagesPeriod. Built on cache.LRUShardConfig (adapted from
// the teacher's common.lruShardCache), sharded on wire.Hash's leading byte
// since dedup lookups are the hottest path in the routed-message pipeline.
package dedupe

import (
	"time"

	"github.com/ground-x/peerengine/cache"
	"github.com/ground-x/peerengine/wire"
)

const numShards = 8

// Cache records the most recent time each message digest was seen and
// answers whether a digest falls within the dedup window.
type Cache struct {
	backend cache.Cache
	window  time.Duration
}

// New builds a Cache holding up to size digests, each remembered for
// window before it is eligible to be treated as fresh again.
func New(size int, window time.Duration) (*Cache, error) {
	backend, err := cache.NewCache(cache.LRUShardConfig{CacheSize: size, NumShards: numShards})
	if err != nil {
		return nil, err
	}
	return &Cache{backend: backend, window: window}, nil
}

// Seen reports whether h was already recorded within the dedup window. Only
// a non-duplicate is recorded (with the current time); a duplicate leaves the
// stored timestamp unchanged, so the window runs from the last accepted copy
// and a burst of identical messages returns false once per window, matching
// spec.md's "first copy forwarded, rest dropped" rule.
func (c *Cache) Seen(h wire.Hash) bool {
	return c.SeenAt(h, time.Now())
}

// SeenAt is Seen with an explicit clock, for deterministic tests.
func (c *Cache) SeenAt(h wire.Hash, now time.Time) bool {
	if v, ok := c.backend.Get(h); ok {
		last := v.(time.Time)
		if now.Sub(last) < c.window {
			return true
		}
	}
	c.backend.Add(h, now)
	return false
}

// Len reports the number of digests currently tracked.
func (c *Cache) Len() int {
	return c.backend.Len()
}
