package wire

// protoEncode/protoDecode implement a small reflective encoder over
// google.golang.org/protobuf/encoding/protowire's tag/varint/length-delimited
// primitives. The teacher's go.mod pins the codegen-era
// github.com/golang/protobuf, which requires running protoc against .proto
// sources we do not have here (see DESIGN.md); protowire gives the same
// wire primitives without codegen, so PeerMessage variants are encoded
// directly off their Go struct shape: field i+1 is wire field number i+1,
// in declared struct-field order, which is stable because encode and decode
// always walk the identical Go type.

import (
	"reflect"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/pkg/errors"
)

func protoEncode(v interface{}) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, errors.Errorf("proto encode: %s is not a struct", rv.Kind())
	}
	return marshalStruct(rv)
}

func protoDecode(data []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return errors.New("proto decode: target must be a pointer")
	}
	return unmarshalStruct(data, rv.Elem())
}

func marshalStruct(rv reflect.Value) ([]byte, error) {
	t := rv.Type()
	var out []byte
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}
		b, err := marshalField(protowire.Number(i+1), rv.Field(i))
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", sf.Name)
		}
		out = append(out, b...)
	}
	return out, nil
}

func marshalField(num protowire.Number, field reflect.Value) ([]byte, error) {
	switch field.Kind() {
	case reflect.Bool:
		v := uint64(0)
		if field.Bool() {
			v = 1
		}
		buf := protowire.AppendTag(nil, num, protowire.VarintType)
		return protowire.AppendVarint(buf, v), nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		buf := protowire.AppendTag(nil, num, protowire.VarintType)
		return protowire.AppendVarint(buf, field.Uint()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf := protowire.AppendTag(nil, num, protowire.VarintType)
		return protowire.AppendVarint(buf, uint64(field.Int())), nil

	case reflect.String:
		buf := protowire.AppendTag(nil, num, protowire.BytesType)
		return protowire.AppendString(buf, field.String()), nil

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			buf := protowire.AppendTag(nil, num, protowire.BytesType)
			return protowire.AppendBytes(buf, field.Bytes()), nil
		}
		var out []byte
		for i := 0; i < field.Len(); i++ {
			b, err := marshalField(num, field.Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		return out, nil

	case reflect.Array:
		if field.Type().Elem().Kind() != reflect.Uint8 {
			return nil, errors.Errorf("unsupported array element kind %s", field.Type().Elem().Kind())
		}
		b := make([]byte, field.Len())
		reflect.Copy(reflect.ValueOf(b), field)
		buf := protowire.AppendTag(nil, num, protowire.BytesType)
		return protowire.AppendBytes(buf, b), nil

	case reflect.Struct:
		nested, err := marshalStruct(field)
		if err != nil {
			return nil, err
		}
		buf := protowire.AppendTag(nil, num, protowire.BytesType)
		return protowire.AppendBytes(buf, nested), nil

	case reflect.Ptr:
		if field.IsNil() {
			return nil, nil
		}
		return marshalField(num, field.Elem())

	default:
		return nil, errors.Errorf("unsupported kind %s", field.Kind())
	}
}

func unmarshalStruct(data []byte, rv reflect.Value) error {
	t := rv.Type()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		idx := int(num) - 1
		if idx < 0 || idx >= t.NumField() {
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return protowire.ParseError(m)
			}
			data = data[m:]
			continue
		}
		consumed, err := unmarshalField(typ, data, rv.Field(idx))
		if err != nil {
			return errors.Wrapf(err, "field %s", t.Field(idx).Name)
		}
		data = data[consumed:]
	}
	return nil
}

func unmarshalField(typ protowire.Type, data []byte, field reflect.Value) (int, error) {
	switch field.Kind() {
	case reflect.Bool:
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		field.SetBool(v != 0)
		return n, nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		field.SetUint(v)
		return n, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		field.SetInt(int64(v))
		return n, nil

	case reflect.String:
		s, n := protowire.ConsumeString(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		field.SetString(s)
		return n, nil

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			field.SetBytes(append([]byte{}, b...))
			return n, nil
		}
		elem := reflect.New(field.Type().Elem()).Elem()
		consumed, err := unmarshalField(typ, data, elem)
		if err != nil {
			return 0, err
		}
		field.Set(reflect.Append(field, elem))
		return consumed, nil

	case reflect.Array:
		b, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if len(b) != field.Len() {
			return 0, errors.Errorf("array length mismatch: got %d want %d", len(b), field.Len())
		}
		reflect.Copy(field, reflect.ValueOf(b))
		return n, nil

	case reflect.Struct:
		nested, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if err := unmarshalStruct(nested, field); err != nil {
			return 0, err
		}
		return n, nil

	case reflect.Ptr:
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return unmarshalField(typ, data, field.Elem())

	default:
		return 0, errors.Errorf("unsupported kind %s", field.Kind())
	}
}

// protoEncodeRoutedBody / protoDecodeRoutedBody mirror the Borsh equivalents
// in borsh_codec.go: RoutedBody is an interface, so it is flattened to a
// kind tag plus its own encoded bytes before the generic struct walk above
// (which does not support interface-typed fields) ever sees it.
func protoEncodeRoutedBody(body RoutedBody) (RoutedKind, []byte, error) {
	kind := body.RoutedKind()
	b, err := protoEncode(body)
	if err != nil {
		return 0, nil, err
	}
	return kind, b, nil
}

func protoDecodeRoutedBody(kind RoutedKind, data []byte) (RoutedBody, error) {
	switch kind {
	case RoutedTxStatusRequest:
		var v TxStatusRequest
		return v, protoDecode(data, &v)
	case RoutedTxStatusResponse:
		var v TxStatusResponse
		return v, protoDecode(data, &v)
	case RoutedReceiptOutcomeRequest:
		var v ReceiptOutcomeRequest
		return v, protoDecode(data, &v)
	case RoutedStateRequestHeader:
		var v StateRequestHeader
		return v, protoDecode(data, &v)
	case RoutedStateRequestPart:
		var v StateRequestPart
		return v, protoDecode(data, &v)
	case RoutedBlockApproval:
		var v BlockApproval
		return v, protoDecode(data, &v)
	case RoutedForwardTx:
		var v ForwardTx
		return v, protoDecode(data, &v)
	case RoutedStateResponse:
		var v StateResponse
		return v, protoDecode(data, &v)
	case RoutedVersionedStateResponse:
		var v VersionedStateResponse
		return v, protoDecode(data, &v)
	case RoutedPartialEncodedChunkRequest:
		var v PartialEncodedChunkRequest
		return v, protoDecode(data, &v)
	case RoutedPartialEncodedChunkResponse:
		var v PartialEncodedChunkResponse
		return v, protoDecode(data, &v)
	case RoutedQueryResponse:
		var v QueryResponse
		return v, protoDecode(data, &v)
	case RoutedPartialEncodedChunk:
		var v PartialEncodedChunk
		return v, protoDecode(data, &v)
	case RoutedVersionedPartialEncodedChunk:
		var v VersionedPartialEncodedChunk
		return v, protoDecode(data, &v)
	case RoutedPartialEncodedChunkForward:
		var v PartialEncodedChunkForward
		return v, protoDecode(data, &v)
	default:
		return nil, errors.Errorf("proto decode: unknown routed kind %d", kind)
	}
}
