// Package codec serializes values to bytes for the file and key/value
// backends. Every codec that can carry a store.Snapshot also reports a stable
// one-byte ID, which internal/wire records in the frame header so a file
// written with one codec is never decoded with another.
package codec

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/feedcache/store"
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Wire IDs. Never renumber: they are persisted.
const (
	IDJSON     byte = 1
	IDCBOR     byte = 2
	IDMsgpack  byte = 3
	IDProtobuf byte = 4
)

// Snapshot is a Codec for store snapshots that identifies itself on the wire.
type Snapshot interface {
	Codec[store.Snapshot]
	ID() byte
	Name() string
}

// ForName returns the snapshot codec registered under name
// ("json", "cbor", "msgpack", "protobuf"). Empty selects JSON.
func ForName(name string) (Snapshot, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON[store.Snapshot]{}, nil
	case "cbor":
		c, err := NewCBOR[store.Snapshot](CBOROptions{})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "msgpack", "messagepack":
		return Msgpack[store.Snapshot]{}, nil
	case "protobuf", "proto":
		return SnapshotProto{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
