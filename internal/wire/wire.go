// Package wire frames encoded snapshots for the file and key/value backends.
//
// Frame: magic(4) "FEED" | ver(1) | codec(1) | plen(u32 be) | payload(plen)
//
// The codec byte records which codec produced the payload so a store reading
// a frame written with another codec reports corruption instead of decoding
// garbage.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	version byte = 1
	hdrLen       = 4 + 1 + 1 + 4
)

var (
	ErrCorrupt       = errors.New("feedcache: corrupt cache frame")
	ErrCodecMismatch = errors.New("feedcache: cache frame written by another codec")
	magic4           = [...]byte{'F', 'E', 'E', 'D'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames payload produced by the codec identified by codecID.
func Encode(codecID byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(codecID)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates a frame and returns the codec id and a payload slice that
// aliases b.
func Decode(b []byte) (codecID byte, payload []byte, err error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return 0, nil, ErrCorrupt
	}
	codecID = b[5]

	plen := int(binary.BigEndian.Uint32(b[6:10]))
	if plen != len(b)-hdrLen { // truncated or trailing bytes
		return 0, nil, ErrCorrupt
	}
	return codecID, b[hdrLen:], nil
}

// DecodeFor is Decode plus a check that the frame was written by want.
func DecodeFor(want byte, b []byte) ([]byte, error) {
	id, payload, err := Decode(b)
	if err != nil {
		return nil, err
	}
	if id != want {
		return nil, fmt.Errorf("%w: frame codec %d, store codec %d", ErrCodecMismatch, id, want)
	}
	return payload, nil
}
