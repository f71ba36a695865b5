// Package cache adapts the teacher's config-driven cache wrapper
// (common/cache.go's CacheConfiger/LRUConfig/LRUShardConfig/ARCConfig) to
// peerengine's bounded caches: the routed-message dedup window (dedupe)
// and the recent-block / outstanding-block-request sets (tracker) are both
// built through NewCache rather than calling hashicorp/golang-lru directly,
// so the backend (plain LRU, sharded LRU, or ARC) is a config choice, not a
// call-site one.
package cache

import (
	"errors"
	"math"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ground-x/peerengine/log"
)

// CacheType selects a CacheConfiger's backend for callers that build their
// configuration from a flag or config file rather than a literal.
type CacheType int

const (
	LRUCacheType CacheType = iota
	LRUShardCacheType
	ARCCacheType
)

// DefaultCacheType and CacheScale mirror the teacher's process-wide knobs:
// CacheScale lets an operator shrink every configured cache size by the
// same percentage without touching each call site.
var DefaultCacheType = LRUCacheType
var CacheScale = 100

var logger = log.NewModuleLogger(log.Cache)

// ShardedKey is implemented by keys that can be routed to one of N shards
// of an LRUShardConfig cache. wire.Hash implements this by sharding on its
// leading byte.
type ShardedKey interface {
	ShardIndex(numShards int) int
}

// Cache is the common bounded-cache surface; peerengine code depends on
// this interface, never on *lru.Cache directly.
type Cache interface {
	Add(key interface{}, value interface{}) (evicted bool)
	Get(key interface{}) (value interface{}, ok bool)
	Contains(key interface{}) bool
	Remove(key interface{})
	Len() int
	Purge()
}

type lruCache struct {
	lru *lru.Cache
}

func (c *lruCache) Add(key, value interface{}) (evicted bool) { return c.lru.Add(key, value) }
func (c *lruCache) Get(key interface{}) (interface{}, bool)    { return c.lru.Get(key) }
func (c *lruCache) Contains(key interface{}) bool              { return c.lru.Contains(key) }
func (c *lruCache) Remove(key interface{})                     { c.lru.Remove(key) }
func (c *lruCache) Len() int                                   { return c.lru.Len() }
func (c *lruCache) Purge()                                     { c.lru.Purge() }

type arcCache struct {
	arc *lru.ARCCache
}

func (c *arcCache) Add(key, value interface{}) (evicted bool) {
	c.arc.Add(key, value)
	return false
}
func (c *arcCache) Get(key interface{}) (interface{}, bool) { return c.arc.Get(key) }
func (c *arcCache) Contains(key interface{}) bool           { return c.arc.Contains(key) }
func (c *arcCache) Remove(key interface{})                  { c.arc.Remove(key) }
func (c *arcCache) Len() int                                { return c.arc.Len() }
func (c *arcCache) Purge()                                  { c.arc.Purge() }

type lruShardCache struct {
	shards         []*lru.Cache
	shardIndexMask int
}

func (c *lruShardCache) shardOf(key interface{}) *lru.Cache {
	sk, ok := key.(ShardedKey)
	if !ok {
		return c.shards[0]
	}
	return c.shards[sk.ShardIndex(len(c.shards))&c.shardIndexMask]
}

func (c *lruShardCache) Add(key, val interface{}) (evicted bool) { return c.shardOf(key).Add(key, val) }
func (c *lruShardCache) Get(key interface{}) (interface{}, bool) { return c.shardOf(key).Get(key) }
func (c *lruShardCache) Contains(key interface{}) bool           { return c.shardOf(key).Contains(key) }
func (c *lruShardCache) Remove(key interface{})                  { c.shardOf(key).Remove(key) }
func (c *lruShardCache) Len() int {
	n := 0
	for _, s := range c.shards {
		n += s.Len()
	}
	return n
}
func (c *lruShardCache) Purge() {
	for _, s := range c.shards {
		s.Purge()
	}
}

// CacheConfiger builds one Cache. NewCache accepts any CacheConfiger, so the
// backend is chosen by which config type a caller passes in.
type CacheConfiger interface {
	NewCache() (Cache, error)
}

// LRUConfig builds a plain bounded LRU.
type LRUConfig struct {
	CacheSize int
}

func (c LRUConfig) NewCache() (Cache, error) {
	size := scaled(c.CacheSize)
	if size < 1 {
		size = 1
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &lruCache{l}, nil
}

// ARCConfig builds an adaptive-replacement cache, preferred over plain LRU
// when both recency and frequency matter (e.g. a peer set queried far more
// often than it churns).
type ARCConfig struct {
	CacheSize int
}

func (c ARCConfig) NewCache() (Cache, error) {
	a, err := lru.NewARC(scaled(c.CacheSize))
	if err != nil {
		return nil, err
	}
	return &arcCache{a}, nil
}

const (
	minShardSize = 10
	minNumShards = 2
)

// LRUShardConfig builds a cache sharded across NumShards independent LRUs,
// for a key space large enough that a single LRU's internal lock would
// serialize unrelated keys. Keys must implement ShardedKey; others all fall
// into shard 0.
type LRUShardConfig struct {
	CacheSize int
	NumShards int
}

func (c LRUShardConfig) NewCache() (Cache, error) {
	size := scaled(c.CacheSize)
	if size < 1 {
		logger.Error("non-positive cache size", "cacheSize", size, "cacheScale", CacheScale)
		return nil, errors.New("cache: must provide a positive size")
	}

	numShards := c.numShardsPowOf2(size)
	if numShards != c.NumShards {
		logger.Warn("shard count adjusted", "requested", c.NumShards, "actual", numShards)
	}
	if size%numShards != 0 {
		logger.Warn("cache size adjusted for even sharding", "requested", size, "actual", size-(size%numShards))
	}

	shard := &lruShardCache{shards: make([]*lru.Cache, numShards), shardIndexMask: numShards - 1}
	shardSize := size / numShards
	for i := 0; i < numShards; i++ {
		l, err := lru.New(shardSize)
		if err != nil {
			return nil, err
		}
		shard.shards[i] = l
	}
	return shard, nil
}

func (c LRUShardConfig) numShardsPowOf2(size int) int {
	maxShards := float64(size / minShardSize)
	n := int(math.Min(float64(c.NumShards), maxShards))
	if n < minNumShards {
		return minNumShards
	}
	for n&(n-1) != 0 {
		n &= n - 1
	}
	return n
}

func scaled(size int) int { return size * CacheScale / 100 }

// NewCache builds the Cache described by config.
func NewCache(config CacheConfiger) (Cache, error) {
	if config == nil {
		return nil, errors.New("cache: config is nil")
	}
	return config.NewCache()
}
