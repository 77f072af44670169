package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxDataLen is the classic CAN payload limit.
	MaxDataLen = 8
	// WireLen is the size of one Linux struct can_frame.
	WireLen = 16

	MaxID         ID     = 0x1FFFFFFF
	MaxStandardID ID     = 0x7FF
	FlagEFF       uint32 = 0x80000000
	FlagRTR       uint32 = 0x40000000
	FlagERR       uint32 = 0x20000000
	maskID        uint32 = 0x1FFFFFFF
)

var (
	ErrInvalidID   = errors.New("frame: identifier out of range")
	ErrDataTooLong = errors.New("frame: data longer than 8 bytes")
	ErrShortFrame  = errors.New("frame: short wire frame")
	ErrInvalidDLC  = errors.New("frame: dlc exceeds 8")
)

// ID is a validated bus identifier (11 or 29 bit).
type ID uint32

// NewID validates v against the extended identifier range.
func NewID(v uint64) (ID, error) {
	if v > uint64(MaxID) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidID, v)
	}
	return ID(v), nil
}

// Extended reports whether the identifier needs the 29-bit frame format.
func (id ID) Extended() bool {
	return id > MaxStandardID
}

func (id ID) String() string {
	if id.Extended() {
		return fmt.Sprintf("%08X", uint32(id))
	}
	return fmt.Sprintf("%03X", uint32(id))
}

// Data is an immutable payload of 0 to 8 bytes.
type Data struct {
	buf [MaxDataLen]byte
	n   uint8
}

// NewData copies b; it fails when b is longer than 8 bytes.
func NewData(b []byte) (Data, error) {
	if len(b) > MaxDataLen {
		return Data{}, fmt.Errorf("%w: got %d", ErrDataTooLong, len(b))
	}
	var d Data
	d.n = uint8(copy(d.buf[:], b))
	return d, nil
}

// FullData builds an 8 byte payload from a fixed array.
func FullData(a [MaxDataLen]byte) Data {
	return Data{buf: a, n: MaxDataLen}
}

func (d Data) Len() int {
	return int(d.n)
}

// Bytes returns a copy of the payload.
func (d Data) Bytes() []byte {
	out := make([]byte, d.n)
	copy(out, d.buf[:d.n])
	return out
}

// Equal compares payload bytes.
func (d Data) Equal(o Data) bool {
	return d.n == o.n && d.buf == o.buf
}

// Frame is one bus frame: identifier plus payload.
type Frame struct {
	id   ID
	data Data
}

// New builds a frame from raw bytes; it fails when b is longer than 8 bytes.
func New(id ID, b []byte) (Frame, error) {
	d, err := NewData(b)
	if err != nil {
		return Frame{}, err
	}
	return Frame{id: id, data: d}, nil
}

// FromData builds a frame from an already validated payload.
func FromData(id ID, d Data) Frame {
	return Frame{id: id, data: d}
}

func (f Frame) ID() ID {
	return f.id
}

func (f Frame) Data() Data {
	return f.data
}

func (f Frame) Equal(o Frame) bool {
	return f.id == o.id && f.data.Equal(o.data)
}

func (f Frame) String() string {
	return fmt.Sprintf("%s#%X", f.id, f.data.Bytes())
}

// EncodeWire renders f in struct can_frame layout.
func EncodeWire(f Frame) []byte {
	buf := make([]byte, WireLen)
	raw := uint32(f.id)
	if f.id.Extended() {
		raw |= FlagEFF
	}
	binary.LittleEndian.PutUint32(buf[0:4], raw)
	buf[4] = f.data.n
	copy(buf[8:16], f.data.buf[:])
	return buf
}

// DecodeWire parses one struct can_frame. The flag bits are returned
// separately and masked off the identifier.
func DecodeWire(b []byte) (Frame, uint32, error) {
	if len(b) < WireLen {
		return Frame{}, 0, ErrShortFrame
	}
	raw := binary.LittleEndian.Uint32(b[0:4])
	dlc := b[4]
	if dlc > MaxDataLen {
		return Frame{}, 0, fmt.Errorf("%w: %d", ErrInvalidDLC, dlc)
	}
	var d Data
	d.n = dlc
	copy(d.buf[:dlc], b[8:8+int(dlc)])
	return Frame{id: ID(raw & maskID), data: d}, raw &^ maskID, nil
}

// ReadFrame reads one wire frame from r. RTR and error frames are
// returned with their flags so callers can decide to drop them.
func ReadFrame(r io.Reader) (Frame, uint32, error) {
	var buf [WireLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, 0, ErrShortFrame
		}
		return Frame{}, 0, err
	}
	return DecodeWire(buf[:])
}

func WriteFrame(w io.Writer, f Frame) error {
	_, err := w.Write(EncodeWire(f))
	return err
}
