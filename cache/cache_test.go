package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shardedInt int

func (s shardedInt) ShardIndex(numShards int) int { return int(s) % numShards }

func TestLRUConfigAddGetContains(t *testing.T) {
	c, err := NewCache(LRUConfig{CacheSize: 4})
	require.NoError(t, err)

	c.Add("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, c.Contains("a"))

	c.Remove("a")
	assert.False(t, c.Contains("a"))
}

func TestARCConfigAddGet(t *testing.T) {
	c, err := NewCache(ARCConfig{CacheSize: 4})
	require.NoError(t, err)

	c.Add("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestLRUShardConfigRoutesByShardedKey(t *testing.T) {
	c, err := NewCache(LRUShardConfig{CacheSize: 100, NumShards: 4})
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		c.Add(shardedInt(i), i*10)
	}
	for i := 0; i < 8; i++ {
		v, ok := c.Get(shardedInt(i))
		require.True(t, ok)
		assert.Equal(t, i*10, v)
	}
	assert.Equal(t, 8, c.Len())
}

func TestLRUShardConfigRejectsNonPositiveSize(t *testing.T) {
	_, err := NewCache(LRUShardConfig{CacheSize: 0, NumShards: 4})
	assert.Error(t, err)
}

func TestNewCacheRejectsNilConfig(t *testing.T) {
	_, err := NewCache(nil)
	assert.Error(t, err)
}
