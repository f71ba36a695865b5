package wire

import (
	"github.com/pkg/errors"

	"github.com/ground-x/peerengine/peerid"
)

// toEnvelope flattens msg into the self-describing envelope shape, encoding
// the variant-specific payload with enc. Routed messages get their own
// dedicated fields (mirroring routedWire) so neither encoder ever has to
// serialize the RoutedBody interface directly.
func toEnvelope(enc Encoding, msg Message) (envelope, error) {
	if r, ok := msg.(Routed); ok {
		rw, err := toRoutedWireFor(enc, r.Message)
		if err != nil {
			return envelope{}, err
		}
		return envelope{
			Kind:             uint8(KindRouted),
			IsRouted:         true,
			RoutedAuthor:     rw.Author,
			RoutedIsHash:     rw.IsHash,
			RoutedPeerID:     rw.PeerID,
			RoutedTargetHash: rw.TargetHash,
			RoutedTTL:        rw.TTL,
			RoutedSignature:  rw.Signature,
			RoutedBodyKind:   rw.BodyKind,
			RoutedBodyBytes:  rw.BodyBytes,
		}, nil
	}

	body, err := encodeBody(enc, msg)
	if err != nil {
		return envelope{}, err
	}
	return envelope{Kind: uint8(msg.Kind()), Body: body}, nil
}

func fromEnvelope(enc Encoding, env envelope) (Message, error) {
	if env.IsRouted {
		rw := routedWire{
			Author:     env.RoutedAuthor,
			IsHash:     env.RoutedIsHash,
			PeerID:     env.RoutedPeerID,
			TargetHash: env.RoutedTargetHash,
			TTL:        env.RoutedTTL,
			Signature:  env.RoutedSignature,
			BodyKind:   env.RoutedBodyKind,
			BodyBytes:  env.RoutedBodyBytes,
		}
		m, err := fromRoutedWireFor(enc, rw)
		if err != nil {
			return nil, err
		}
		return Routed{Message: m}, nil
	}
	return decodeBody(enc, Kind(env.Kind), env.Body)
}

func encodeBody(enc Encoding, msg Message) ([]byte, error) {
	if enc == EncodingProto {
		return protoEncode(msg)
	}
	return borshEncode(msg)
}

func decodeInto(enc Encoding, data []byte, v interface{}) error {
	if enc == EncodingProto {
		return protoDecode(data, v)
	}
	return borshDecode(data, v)
}

// toRoutedWireFor/fromRoutedWireFor are the encoding-parameterized
// counterparts of toRoutedWire/fromRoutedWire in borsh_codec.go: the
// structural (author/target/ttl/signature) fields are encoding-agnostic Go
// values already, only the nested RoutedBody needs the selected encoder.
func toRoutedWireFor(enc Encoding, m RoutedMessage) (routedWire, error) {
	var kind RoutedKind
	var body []byte
	var err error
	if enc == EncodingProto {
		kind, body, err = protoEncodeRoutedBody(m.Body)
	} else {
		kind, body, err = borshEncodeRoutedBody(m.Body)
	}
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

func fromRoutedWireFor(enc Encoding, w routedWire) (RoutedMessage, error) {
	var body RoutedBody
	var err error
	if enc == EncodingProto {
		body, err = protoDecodeRoutedBody(RoutedKind(w.BodyKind), w.BodyBytes)
	} else {
		body, err = borshDecodeRoutedBody(RoutedKind(w.BodyKind), w.BodyBytes)
	}
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

func decodeBody(enc Encoding, kind Kind, data []byte) (Message, error) {
	switch kind {
	case KindHandshake:
		var v Handshake
		return v, decodeInto(enc, data, &v)
	case KindHandshakeFailure:
		var v HandshakeFailure
		return v, decodeInto(enc, data, &v)
	case KindLastEdge:
		var v LastEdge
		return v, decodeInto(enc, data, &v)
	case KindSyncRoutingTable:
		var v SyncRoutingTable
		return v, decodeInto(enc, data, &v)
	case KindRequestUpdateNonce:
		var v RequestUpdateNonce
		return v, decodeInto(enc, data, &v)
	case KindResponseUpdateNonce:
		var v ResponseUpdateNonce
		return v, decodeInto(enc, data, &v)
	case KindPeersRequest:
		var v PeersRequest
		return v, decodeInto(enc, data, &v)
	case KindPeersResponse:
		var v PeersResponse
		return v, decodeInto(enc, data, &v)
	case KindBlockHeadersRequest:
		var v BlockHeadersRequest
		return v, decodeInto(enc, data, &v)
	case KindBlockHeaders:
		var v BlockHeaders
		return v, decodeInto(enc, data, &v)
	case KindBlockRequest:
		var v BlockRequest
		return v, decodeInto(enc, data, &v)
	case KindBlock:
		var v BlockMsg
		return v, decodeInto(enc, data, &v)
	case KindTransaction:
		var v TransactionMsg
		return v, decodeInto(enc, data, &v)
	case KindDisconnect:
		var v Disconnect
		return v, decodeInto(enc, data, &v)
	case KindChallenge:
		var v ChallengeMsg
		return v, decodeInto(enc, data, &v)
	case KindEpochSyncRequest:
		var v EpochSyncRequest
		return v, decodeInto(enc, data, &v)
	case KindEpochSyncResponse:
		var v EpochSyncResponseMsg
		return v, decodeInto(enc, data, &v)
	case KindEpochSyncFinalizationRequest:
		var v EpochSyncFinalizationRequest
		return v, decodeInto(enc, data, &v)
	case KindEpochSyncFinalizationResponse:
		var v EpochSyncFinalizationResponseMsg
		return v, decodeInto(enc, data, &v)
	default:
		return nil, errors.Errorf("decode: unknown kind %d", kind)
	}
}
