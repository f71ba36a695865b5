package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ground-x/peerengine/ban"
)

func TestFrameCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameCodec(&buf, &buf, 1024)

	require.NoError(t, w.WriteFrame([]byte("hello")))
	require.NoError(t, w.WriteFrame([]byte("world")))

	p1, reason, err := w.ReadFrame()
	require.NoError(t, err)
	require.Nil(t, reason)
	assert.Equal(t, "hello", string(p1))

	p2, reason, err := w.ReadFrame()
	require.NoError(t, err)
	require.Nil(t, reason)
	assert.Equal(t, "world", string(p2))
}

func TestFrameCodecRejectsOversizeFrame(t *testing.T) {
	var buf bytes.Buffer
	maker := NewFrameCodec(&buf, &buf, 1<<20)
	require.NoError(t, maker.WriteFrame(make([]byte, 100)))

	reader := NewFrameCodec(&buf, &buf, 10) // smaller max than what was written
	_, reason, err := reader.ReadFrame()
	require.Error(t, err)
	require.NotNil(t, reason)
	assert.Equal(t, ban.OversizedFrame, reason.Code)
}

func TestFrameCodecWriteRejectsOversizePayload(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameCodec(&buf, &buf, 4)
	err := w.WriteFrame([]byte("too big"))
	assert.Error(t, err)
}
