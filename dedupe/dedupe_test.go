package dedupe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ground-x/peerengine/wire"
)

// Testable property #3 (spec.md §8): a duplicate digest observed within the
// window is suppressed; the same digest observed after the window elapses
// is treated as fresh again.
func TestCacheSeenWithinWindow(t *testing.T) {
	c, err := New(16, 50*time.Millisecond)
	require.NoError(t, err)

	h := wire.Hash{1, 2, 3}
	base := time.Unix(1000, 0)

	assert.False(t, c.SeenAt(h, base), "first observation is never a duplicate")
	assert.True(t, c.SeenAt(h, base.Add(10*time.Millisecond)), "repeat within window is a duplicate")
	assert.True(t, c.SeenAt(h, base.Add(40*time.Millisecond)), "still within window")
	assert.False(t, c.SeenAt(h, base.Add(60*time.Millisecond)), "window elapsed, treated as fresh")
}

func TestCacheDistinctHashesDontInterfere(t *testing.T) {
	c, err := New(16, time.Second)
	require.NoError(t, err)

	now := time.Unix(2000, 0)
	h1 := wire.Hash{1}
	h2 := wire.Hash{2}

	assert.False(t, c.SeenAt(h1, now))
	assert.False(t, c.SeenAt(h2, now))
	assert.Equal(t, 2, c.Len())
}

func TestCacheEvictsUnderCapacityPressure(t *testing.T) {
	c, err := New(8, time.Hour)
	require.NoError(t, err)

	now := time.Unix(3000, 0)
	for i := 0; i < 64; i++ {
		var h wire.Hash
		h[0] = byte(i)
		c.SeenAt(h, now)
	}
	assert.LessOrEqual(t, c.Len(), 8)
}
