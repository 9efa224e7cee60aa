package codec

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/store"
)

// SnapshotProto encodes snapshots in protobuf wire format, equivalent to:
//
//	message Item {
//	  bytes  id          = 1; // 16 raw UUID bytes
//	  string description = 2;
//	  string location    = 3;
//	  string url         = 4;
//	}
//	message Snapshot {
//	  repeated Item             items     = 1;
//	  google.protobuf.Timestamp timestamp = 2;
//	}
//
// Unknown fields are skipped on decode. The zero value is ready to use.
type SnapshotProto struct{}

var _ Snapshot = SnapshotProto{}

const (
	snapItems     protowire.Number = 1
	snapTimestamp protowire.Number = 2

	itemID          protowire.Number = 1
	itemDescription protowire.Number = 2
	itemLocation    protowire.Number = 3
	itemURL         protowire.Number = 4
)

var errNoTimestamp = errors.New("protobuf snapshot: missing timestamp")

func (SnapshotProto) ID() byte     { return IDProtobuf }
func (SnapshotProto) Name() string { return "protobuf" }

func (SnapshotProto) Encode(s store.Snapshot) ([]byte, error) {
	var b []byte
	for _, r := range s.Records {
		b = protowire.AppendTag(b, snapItems, protowire.BytesType)
		b = protowire.AppendBytes(b, appendItem(nil, r))
	}
	ts, err := proto.Marshal(timestamppb.New(s.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("protobuf snapshot: timestamp: %w", err)
	}
	b = protowire.AppendTag(b, snapTimestamp, protowire.BytesType)
	b = protowire.AppendBytes(b, ts)
	return b, nil
}

func appendItem(b []byte, r feed.Record) []byte {
	b = protowire.AppendTag(b, itemID, protowire.BytesType)
	b = protowire.AppendBytes(b, r.ID[:])
	if r.Description != "" {
		b = protowire.AppendTag(b, itemDescription, protowire.BytesType)
		b = protowire.AppendString(b, r.Description)
	}
	if r.Location != "" {
		b = protowire.AppendTag(b, itemLocation, protowire.BytesType)
		b = protowire.AppendString(b, r.Location)
	}
	b = protowire.AppendTag(b, itemURL, protowire.BytesType)
	b = protowire.AppendString(b, r.ImageURL)
	return b
}

func (SnapshotProto) Decode(b []byte) (store.Snapshot, error) {
	s := store.Snapshot{Records: []feed.Record{}}
	sawTS := false
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return store.Snapshot{}, protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.BytesType || (num != snapItems && num != snapTimestamp) {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return store.Snapshot{}, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return store.Snapshot{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch num {
		case snapItems:
			r, err := decodeItem(v)
			if err != nil {
				return store.Snapshot{}, err
			}
			s.Records = append(s.Records, r)
		case snapTimestamp:
			var ts timestamppb.Timestamp
			if err := proto.Unmarshal(v, &ts); err != nil {
				return store.Snapshot{}, fmt.Errorf("protobuf snapshot: timestamp: %w", err)
			}
			if err := ts.CheckValid(); err != nil {
				return store.Snapshot{}, fmt.Errorf("protobuf snapshot: timestamp: %w", err)
			}
			s.Timestamp = ts.AsTime()
			sawTS = true
		}
	}
	if !sawTS {
		return store.Snapshot{}, errNoTimestamp
	}
	return s, nil
}

func decodeItem(b []byte) (feed.Record, error) {
	var (
		r      feed.Record
		sawID  bool
		sawURL bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return feed.Record{}, protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.BytesType || num < itemID || num > itemURL {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return feed.Record{}, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return feed.Record{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch num {
		case itemID:
			id, err := uuid.FromBytes(v)
			if err != nil {
				return feed.Record{}, fmt.Errorf("protobuf snapshot: item id: %w", err)
			}
			r.ID = id
			sawID = true
		case itemDescription:
			r.Description = string(v)
		case itemLocation:
			r.Location = string(v)
		case itemURL:
			r.ImageURL = string(v)
			sawURL = true
		}
	}
	if !sawID || !sawURL {
		return feed.Record{}, errors.New("protobuf snapshot: item missing id or url")
	}
	return r, nil
}
