package wire

import (
	"github.com/near/borsh-go"
	"github.com/pkg/errors"

	"github.com/ground-x/peerengine/peerid"
)

// borshEncode serializes a concrete PeerMessage payload with Borsh. Each
// variant is a plain struct with exported fields only (no interfaces), so
// borsh-go's struct-reflection serializer applies directly; the Kind byte
// that discriminates the sum type is written by the caller (codec.go), not
// here.
func borshEncode(v interface{}) ([]byte, error) {
	b, err := borsh.Serialize(v)
	if err != nil {
		return nil, errors.Wrap(err, "borsh encode")
	}
	return b, nil
}

func borshDecode(data []byte, v interface{}) error {
	if err := borsh.Deserialize(v, data); err != nil {
		return errors.Wrap(err, "borsh decode")
	}
	return nil
}

// borshEncodeRoutedBody dispatches a RoutedBody to its concrete struct and
// Borsh-serializes it; this is also the canonical byte representation a
// RoutedMessage is signed over (see routed_sign.go), independent
// of which of the two wire encodings actually carried the frame.
func borshEncodeRoutedBody(body RoutedBody) (RoutedKind, []byte, error) {
	kind := body.RoutedKind()
	b, err := borshEncode(body)
	if err != nil {
		return 0, nil, err
	}
	return kind, b, nil
}

func borshDecodeRoutedBody(kind RoutedKind, data []byte) (RoutedBody, error) {
	switch kind {
	case RoutedTxStatusRequest:
		var v TxStatusRequest
		return v, borshDecode(data, &v)
	case RoutedTxStatusResponse:
		var v TxStatusResponse
		return v, borshDecode(data, &v)
	case RoutedReceiptOutcomeRequest:
		var v ReceiptOutcomeRequest
		return v, borshDecode(data, &v)
	case RoutedStateRequestHeader:
		var v StateRequestHeader
		return v, borshDecode(data, &v)
	case RoutedStateRequestPart:
		var v StateRequestPart
		return v, borshDecode(data, &v)
	case RoutedBlockApproval:
		var v BlockApproval
		return v, borshDecode(data, &v)
	case RoutedForwardTx:
		var v ForwardTx
		return v, borshDecode(data, &v)
	case RoutedStateResponse:
		var v StateResponse
		return v, borshDecode(data, &v)
	case RoutedVersionedStateResponse:
		var v VersionedStateResponse
		return v, borshDecode(data, &v)
	case RoutedPartialEncodedChunkRequest:
		var v PartialEncodedChunkRequest
		return v, borshDecode(data, &v)
	case RoutedPartialEncodedChunkResponse:
		var v PartialEncodedChunkResponse
		return v, borshDecode(data, &v)
	case RoutedQueryResponse:
		var v QueryResponse
		return v, borshDecode(data, &v)
	case RoutedPartialEncodedChunk:
		var v PartialEncodedChunk
		return v, borshDecode(data, &v)
	case RoutedVersionedPartialEncodedChunk:
		var v VersionedPartialEncodedChunk
		return v, borshDecode(data, &v)
	case RoutedPartialEncodedChunkForward:
		var v PartialEncodedChunkForward
		return v, borshDecode(data, &v)
	default:
		return nil, errors.Errorf("borsh decode: unknown routed kind %d", kind)
	}
}

// routedWire is the concrete, borsh-serializable shape of a RoutedMessage:
// the body is flattened into a kind tag plus its own Borsh bytes so the
// struct has no interface fields.
type routedWire struct {
	Author    [32]byte
	IsHash    bool
	PeerID    [32]byte
	TargetHash [32]byte
	TTL       uint8
	Signature []byte
	BodyKind  uint8
	BodyBytes []byte
}

func toRoutedWire(m RoutedMessage) (routedWire, error) {
	kind, body, err := borshEncodeRoutedBody(m.Body)
	if err != nil {
		return routedWire{}, err
	}
	return routedWire{
		Author:     [32]byte(m.Author),
		IsHash:     m.Target.IsHash,
		PeerID:     [32]byte(m.Target.PeerID),
		TargetHash: [32]byte(m.Target.TargetHash),
		TTL:        m.TTL,
		Signature:  m.Signature,
		BodyKind:   uint8(kind),
		BodyBytes:  body,
	}, nil
}

func fromRoutedWire(w routedWire) (RoutedMessage, error) {
	body, err := borshDecodeRoutedBody(RoutedKind(w.BodyKind), w.BodyBytes)
	if err != nil {
		return RoutedMessage{}, err
	}
	return RoutedMessage{
		Author: peerid.ID(w.Author),
		Target: Target{
			IsHash:     w.IsHash,
			PeerID:     peerid.ID(w.PeerID),
			TargetHash: Hash(w.TargetHash),
		},
		TTL:       w.TTL,
		Signature: w.Signature,
		Body:      body,
	}, nil
}
