package wire

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/ground-x/peerengine/ban"
)

// FrameCodec reads and writes length-prefixed byte frames on a bidirectional
// byte stream (spec.md §4.1): a 4-byte big-endian length prefix followed by
// that many payload bytes, one frame per PeerMessage. It is the sole
// suspension point for reads.
type FrameCodec struct {
	r            *bufio.Reader
	w            *bufio.Writer
	maxFrameSize uint32
}

const lengthPrefixSize = 4

// NewFrameCodec wraps rw with the given maximum frame payload size.
func NewFrameCodec(r io.Reader, w io.Writer, maxFrameSize uint32) *FrameCodec {
	return &FrameCodec{r: bufio.NewReader(r), w: bufio.NewWriter(w), maxFrameSize: maxFrameSize}
}

// ReadFrame blocks until a full frame is available, io.EOF/read error
// occurs, or the frame's length prefix exceeds the maximum frame size. A
// non-nil ban.Reason return (always OversizedFrame) means the stream itself
// is misbehaving and the caller should ban rather than merely log; a
// truncated frame is reported as a plain read error.
func (f *FrameCodec) ReadFrame() ([]byte, *ban.Reason, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(f.r, lenBuf[:]); err != nil {
		return nil, nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > f.maxFrameSize {
		r := ban.New(ban.OversizedFrame, "")
		return nil, &r, errors.Errorf("frame size %d exceeds max %d", n, f.maxFrameSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		return nil, nil, err
	}
	return payload, nil, nil
}

// WriteFrame writes one length-prefixed frame. The caller (the Outbound Send
// Path) is responsible for not blocking indefinitely; WriteFrame itself is a
// synchronous write to the underlying stream.
func (f *FrameCodec) WriteFrame(payload []byte) error {
	if uint32(len(payload)) > f.maxFrameSize {
		return errors.Errorf("frame size %d exceeds max %d", len(payload), f.maxFrameSize)
	}
	var lenBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := f.w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "write frame length")
	}
	if _, err := f.w.Write(payload); err != nil {
		return errors.Wrap(err, "write frame payload")
	}
	return f.w.Flush()
}
