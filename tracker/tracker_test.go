package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ground-x/peerengine/wire"
)

func TestTrackerRecordsSentAndReceived(t *testing.T) {
	tr := New()
	tr.RecordSent(10)
	tr.RecordSent(20)
	tr.RecordReceived(5)

	sb, sc := tr.SentStats()
	assert.Equal(t, uint64(30), sb)
	assert.Equal(t, uint64(2), sc)

	rb, rc := tr.ReceivedStats()
	assert.Equal(t, uint64(5), rb)
	assert.Equal(t, uint64(1), rc)
}

func TestDirectionWindowExcludesStaleBuckets(t *testing.T) {
	d := newDirection()
	old := time.Unix(1000, 0)
	d.record(old, 99)

	recent := old.Add(windowDuration + time.Second)
	bytes, count := d.totals(recent)
	assert.Equal(t, uint64(0), bytes, "bucket outside the 60s window no longer counts")
	assert.Equal(t, uint64(0), count)
}

func TestTrackerBlockDedupSets(t *testing.T) {
	tr := New()
	h := wire.Hash{5, 6, 7}

	assert.False(t, tr.HasRecentBlock(h))
	tr.MarkBlockReceived(h)
	assert.True(t, tr.HasRecentBlock(h))

	assert.False(t, tr.IsBlockRequestOutstanding(h))
	tr.MarkBlockRequested(h)
	assert.True(t, tr.IsBlockRequestOutstanding(h))
	tr.ClearBlockRequest(h)
	assert.False(t, tr.IsBlockRequestOutstanding(h))
}
