package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func mustDecode(t *testing.T, b []byte) (byte, []byte) {
	t.Helper()
	id, p, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return id, p
}

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		id      byte
		payload []byte
	}{
		{1, nil},
		{2, []byte(`{"items":[]}`)},
		{4, []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		enc := Encode(tc.id, tc.payload)
		id, p := mustDecode(t, enc)
		if id != tc.id {
			t.Fatalf("codec id mismatch: got %d want %d", id, tc.id)
		}
		if !bytes.Equal(p, tc.payload) {
			t.Fatalf("payload mismatch: got %x want %x", p, tc.payload)
		}
	}
}

func TestFrameRejectsTrailingBytes(t *testing.T) {
	enc := Encode(1, []byte("x"))
	enc = append(enc, 0xDE, 0xAD)
	if _, _, err := Decode(enc); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on trailing bytes, got %v", err)
	}
}

func TestFrameCorruptHeadersAndLengths(t *testing.T) {
	enc := Encode(1, []byte("abc"))

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, _, err := Decode(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, _, err := Decode(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	// plen is at offset 6..9 (4 magic +1 ver +1 codec)
	tooLong := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(tooLong[6:10], uint32(len("abc")+1))
	if _, _, err := Decode(tooLong); err == nil {
		t.Fatalf("expected error on plen beyond buffer")
	}

	if _, _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
	if _, _, err := Decode([]byte("FEED")); err == nil {
		t.Fatalf("expected error on header-only input")
	}
	if _, _, err := Decode([]byte(`{"items":[],"timestamp":"2024-01-01T00:00:00Z"}`)); err == nil {
		t.Fatalf("expected error on unframed payload")
	}
}

func TestDecodeForCodecMismatch(t *testing.T) {
	enc := Encode(2, []byte("cbor bytes"))
	if _, err := DecodeFor(1, enc); !errors.Is(err, ErrCodecMismatch) {
		t.Fatalf("expected ErrCodecMismatch, got %v", err)
	}
	p, err := DecodeFor(2, enc)
	if err != nil || string(p) != "cbor bytes" {
		t.Fatalf("DecodeFor matching codec: p=%q err=%v", p, err)
	}
}

func TestFrameZeroCopyPayload(t *testing.T) {
	enc := Encode(1, []byte("Z"))
	_, p := mustDecode(t, enc)
	p[0] = 'Q'
	_, p2 := mustDecode(t, enc)
	if p2[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}
