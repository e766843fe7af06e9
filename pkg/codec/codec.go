// Package codec implements the binary and JSON encode/decode of
// user-defined message and response values. It is a leaf package (no
// dependency on the root routing package) so both the root directory
// package and pkg/rpc's remote transport can share it without an import
// cycle.
package codec

import (
	"bytes"
	"encoding/gob"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack"
	"google.golang.org/protobuf/proto"

	"github.com/spiral/roundtable/pkg/rerr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// Kind selects the wire encoding used for a message or response,
// mirroring the flag byte the teacher's pkg/rpc/codec.go switches on
// (frame.CodecProto/CodecJSON/CodecRaw/CodecMsgpack/CodecGob).
type Kind byte

const (
	JSON Kind = 1 << iota
	Msgpack
	Gob
	Proto
	Raw
)

// ContentType returns the HTTP content type a Factory registration of
// this Kind should use.
func (k Kind) ContentType() string {
	if k == JSON {
		return "application/json"
	}
	return "application/octet-stream"
}

// Encode serializes v using the chosen codec.
func Encode(kind Kind, w io.Writer, v any) error {
	const op = "codec: encode"
	switch kind {
	case JSON:
		b, err := json.Marshal(v)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		_, err = w.Write(b)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		return nil
	case Msgpack:
		b, err := msgpack.Marshal(v)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		_, err = w.Write(b)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		return nil
	case Gob:
		if err := gob.NewEncoder(w).Encode(v); err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		return nil
	case Proto:
		m, ok := v.(proto.Message)
		if !ok {
			return rerr.E(op, rerr.KindCodec, errTypeMismatch)
		}
		b, err := proto.Marshal(m)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		_, err = w.Write(b)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		return nil
	case Raw:
		b, ok := v.([]byte)
		if !ok {
			if bp, ok2 := v.(*[]byte); ok2 {
				b = *bp
			} else {
				return rerr.E(op, rerr.KindCodec, errTypeMismatch)
			}
		}
		_, err := w.Write(b)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		return nil
	default:
		return rerr.E(op, rerr.KindCodec, errUnknownCodec)
	}
}

// Decode deserializes into v (a pointer) using the chosen codec.
func Decode(kind Kind, r io.Reader, v any) error {
	const op = "codec: decode"
	switch kind {
	case JSON:
		if err := json.NewDecoder(r).Decode(v); err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		return nil
	case Msgpack:
		b, err := io.ReadAll(r)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		if err := msgpack.Unmarshal(b, v); err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		return nil
	case Gob:
		if err := gob.NewDecoder(r).Decode(v); err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		return nil
	case Proto:
		m, ok := v.(proto.Message)
		if !ok {
			return rerr.E(op, rerr.KindCodec, errTypeMismatch)
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		if err := proto.Unmarshal(b, m); err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		return nil
	case Raw:
		b, err := io.ReadAll(r)
		if err != nil {
			return rerr.E(op, rerr.KindCodec, err)
		}
		bp, ok := v.(*[]byte)
		if !ok {
			return rerr.E(op, rerr.KindCodec, errTypeMismatch)
		}
		*bp = b
		return nil
	default:
		return rerr.E(op, rerr.KindCodec, errUnknownCodec)
	}
}

// EncodeBytes is a convenience wrapper returning the encoded bytes
// directly, used by pkg/rpc when building an HTTP request body.
func EncodeBytes(kind Kind, v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(kind, &buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBytes is a convenience wrapper decoding from an in-memory slice.
func DecodeBytes(kind Kind, b []byte, v any) error {
	return Decode(kind, bytes.NewReader(b), v)
}

var (
	errTypeMismatch = errString("codec: type mismatch")
	errUnknownCodec = errString("codec: unknown codec kind")
)

type errString string

func (e errString) Error() string { return string(e) }
