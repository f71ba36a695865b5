package wire

import (
	"github.com/pkg/errors"
)

// Encoding selects which of the two wire formats a Message is serialized
// with (spec.md §4.2).
type Encoding uint8

const (
	// EncodingNone means "not yet negotiated": both encodings are tried on
	// receive and both are sent on transmit, until the peer's capability is
	// known.
	EncodingNone Encoding = iota
	EncodingProto
	EncodingBorsh
)

func (e Encoding) String() string {
	switch e {
	case EncodingProto:
		return "proto"
	case EncodingBorsh:
		return "borsh"
	default:
		return "none"
	}
}

// ParseEncoding parses the config/CLI spelling of an encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "proto":
		return EncodingProto, nil
	case "borsh":
		return EncodingBorsh, nil
	case "", "none":
		return EncodingNone, nil
	default:
		return EncodingNone, errors.Errorf("unknown encoding %q", s)
	}
}

// envelope is the (kind, encoding-specific body) shape every Message is
// wrapped in before it hits the frame codec. The whole envelope, Kind
// included, is serialized with the same encoding as the body, so a frame
// can only be decoded with the encoding that produced it.
type envelope struct {
	Kind     uint8
	IsRouted bool
	// One of the following is populated, selected by Kind/IsRouted.
	RoutedAuthor     [32]byte
	RoutedIsHash     bool
	RoutedPeerID     [32]byte
	RoutedTargetHash [32]byte
	RoutedTTL        uint8
	RoutedSignature  []byte
	RoutedBodyKind   uint8
	RoutedBodyBytes  []byte
	Body             []byte
}

// MessageCodec implements the per-connection Parse/Send rules of spec.md
// §4.2: an encoding is either forced by configuration, or autodetected from
// the first successfully-Proto-parsed frame and then stuck to for the rest
// of the connection's life (the "proto_supported" latch).
type MessageCodec struct {
	forced  Encoding // EncodingNone if autodetection is in effect
	latched bool
	active  Encoding // meaningful once latched
}

// NewMessageCodec builds a codec. If forced is not EncodingNone, autodetection
// never runs and every frame uses forced.
func NewMessageCodec(forced Encoding) *MessageCodec {
	return &MessageCodec{forced: forced}
}

// Effective reports the encoding currently in force, or EncodingNone if
// still undetermined. Without a forced encoding it stays EncodingNone until
// a Proto frame has been decoded; the codec does not track handshake state,
// so a connection whose peer never sends Proto stays undetermined (and keeps
// dual-sending) after the handshake too.
func (c *MessageCodec) Effective() Encoding {
	if c.forced != EncodingNone {
		return c.forced
	}
	if c.latched {
		return c.active
	}
	return EncodingNone
}

// Encode serializes msg per spec.md §4.2's Send rule: if the effective
// encoding is known, a single frame is produced in that encoding; otherwise
// (Effective() is EncodingNone) both encodings are produced and the caller
// sends both, in Proto-then-Borsh order, so at least one copy the peer can
// decode arrives.
func (c *MessageCodec) Encode(msg Message) ([][]byte, error) {
	eff := c.Effective()
	if eff == EncodingProto {
		b, err := c.encodeOne(EncodingProto, msg)
		if err != nil {
			return nil, err
		}
		return [][]byte{b}, nil
	}
	if eff == EncodingBorsh {
		b, err := c.encodeOne(EncodingBorsh, msg)
		if err != nil {
			return nil, err
		}
		return [][]byte{b}, nil
	}
	p, err := c.encodeOne(EncodingProto, msg)
	if err != nil {
		return nil, err
	}
	b, err := c.encodeOne(EncodingBorsh, msg)
	if err != nil {
		return nil, err
	}
	return [][]byte{p, b}, nil
}

func (c *MessageCodec) encodeOne(enc Encoding, msg Message) ([]byte, error) {
	env, err := toEnvelope(enc, msg)
	if err != nil {
		return nil, err
	}
	switch enc {
	case EncodingProto:
		return protoEncode(env)
	default:
		return borshEncode(env)
	}
}

// Decode deserializes a single frame per spec.md §4.2's Parse rule: if the
// effective encoding is already known, only that encoding is tried.
// Otherwise Proto is attempted first; on success the proto_supported latch
// is set for the remainder of the connection. On failure Borsh is attempted,
// and the latch is left unset so future frames keep trying Proto first
// (mirrors spec.md's "only Proto success is sticky" rule).
func (c *MessageCodec) Decode(data []byte) (Message, error) {
	if c.forced == EncodingProto {
		return c.decodeOne(EncodingProto, data)
	}
	if c.forced == EncodingBorsh {
		return c.decodeOne(EncodingBorsh, data)
	}
	if c.latched {
		return c.decodeOne(c.active, data)
	}

	msg, protoErr := c.decodeOne(EncodingProto, data)
	if protoErr == nil {
		c.latched = true
		c.active = EncodingProto
		return msg, nil
	}
	msg, borshErr := c.decodeOne(EncodingBorsh, data)
	if borshErr == nil {
		return msg, nil
	}
	return nil, errors.Errorf("decode: proto error (%v), borsh error (%v)", protoErr, borshErr)
}

func (c *MessageCodec) decodeOne(enc Encoding, data []byte) (Message, error) {
	var env envelope
	var err error
	switch enc {
	case EncodingProto:
		err = protoDecode(data, &env)
	default:
		err = borshDecode(data, &env)
	}
	if err != nil {
		return nil, err
	}
	return fromEnvelope(enc, env)
}
