package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestNewIDRange(t *testing.T) {
	if _, err := NewID(0); err != nil {
		t.Fatalf("id 0: %v", err)
	}
	if _, err := NewID(uint64(MaxID)); err != nil {
		t.Fatalf("max id: %v", err)
	}
	if _, err := NewID(uint64(MaxID) + 1); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if ID(0x7FF).Extended() || !ID(0x800).Extended() {
		t.Fatalf("extended boundary wrong")
	}
}

func TestNewFrameRejectsLongData(t *testing.T) {
	if _, err := New(1, make([]byte, 9)); !errors.Is(err, ErrDataTooLong) {
		t.Fatalf("expected ErrDataTooLong, got %v", err)
	}
	f, err := New(1, []byte{})
	if err != nil {
		t.Fatalf("empty data: %v", err)
	}
	if f.Data().Len() != 0 {
		t.Fatalf("expected empty payload, got %d", f.Data().Len())
	}
}

func TestDataIsImmutable(t *testing.T) {
	src := []byte{1, 2, 3}
	d, err := NewData(src)
	if err != nil {
		t.Fatalf("new data: %v", err)
	}
	src[0] = 9
	out := d.Bytes()
	out[1] = 9
	if !bytes.Equal(d.Bytes(), []byte{1, 2, 3}) {
		t.Fatalf("payload mutated: %v", d.Bytes())
	}
	full := FullData([MaxDataLen]byte{1, 2, 3, 4, 5, 6, 7, 8})
	if full.Len() != MaxDataLen {
		t.Fatalf("full data len=%d", full.Len())
	}
}

func TestWireRoundTrip(t *testing.T) {
	in, _ := New(0x123, []byte{0xDE, 0xAD})
	ext, _ := New(0x1ABCDEF, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	var buf bytes.Buffer
	if err := WriteFrame(&buf, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFrame(&buf, ext); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := buf.Bytes()
	if raw[3]&0x80 != 0 {
		t.Fatalf("standard id must not carry EFF flag")
	}
	if raw[WireLen+3]&0x80 == 0 {
		t.Fatalf("extended id must carry EFF flag")
	}

	out, flags, err := ReadFrame(&buf)
	if err != nil || flags != 0 || !out.Equal(in) {
		t.Fatalf("standard frame mismatch: out=%v flags=%x err=%v", out, flags, err)
	}
	out, flags, err = ReadFrame(&buf)
	if err != nil || flags != FlagEFF || !out.Equal(ext) {
		t.Fatalf("extended frame mismatch: out=%v flags=%x err=%v", out, flags, err)
	}
	if _, _, err := ReadFrame(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReadFrameMalformedIsDeterministic(t *testing.T) {
	if _, _, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3})); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
	bad := make([]byte, WireLen)
	bad[4] = 9
	if _, _, err := ReadFrame(bytes.NewReader(bad)); !errors.Is(err, ErrInvalidDLC) {
		t.Fatalf("expected ErrInvalidDLC, got %v", err)
	}
}
