package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack encodes with vmihailenco/msgpack/v5 using the `msgpack` tags of
// the snapshot types. Integers are packed compactly and unknown fields fail
// decoding, so a payload written by a different schema is reported instead
// of silently dropping data. The zero value is ready to use.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields(true)
	err := dec.Decode(&v)
	return v, err
}

func (Msgpack[V]) ID() byte     { return IDMsgpack }
func (Msgpack[V]) Name() string { return "msgpack" }
