package convert

import (
	"fmt"

	"github.com/danmuck/can2mqtt/internal/protocol/frame"
)

// Kind selects converter behavior.
type Kind uint8

const (
	KindNone Kind = iota
	KindMyMode
	KindByteColor
	KindPixelBin
	KindSixteenBool
	KindUint
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindMyMode:
		return "mymode"
	case KindByteColor:
		return "bytecolor2colorcode"
	case KindPixelBin:
		return "pixelbin2ascii"
	case KindSixteenBool:
		return "sixteenbool2ascii"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Converter is a named, stateless bidirectional transcoder.
type Converter struct {
	kind      Kind
	bits      int
	instances int
	name      string
}

// None passes bytes through; payloads longer than 8 bytes are truncated
// towards the bus.
func None() *Converter {
	return &Converter{kind: KindNone, name: KindNone.String()}
}

// MyMode is the user-customizable slot. It behaves like None.
func MyMode() *Converter {
	return &Converter{kind: KindMyMode, name: KindMyMode.String()}
}

// ByteColor maps 3 bytes to "#rrggbb".
func ByteColor() *Converter {
	return &Converter{kind: KindByteColor, name: KindByteColor.String()}
}

// PixelBin maps 4 bytes to "<index> #rrggbb".
func PixelBin() *Converter {
	return &Converter{kind: KindPixelBin, name: KindPixelBin.String()}
}

// SixteenBool maps 2 bytes to 16 space-separated bits, MSB first.
func SixteenBool() *Converter {
	return &Converter{kind: KindSixteenBool, name: KindSixteenBool.String()}
}

// NewUint builds an unsigned integer converter for instances values of
// bits width each.
func NewUint(instances, bits int) (*Converter, error) {
	return newInteger(KindUint, instances, bits)
}

// NewInt builds a signed integer converter for instances values of bits
// width each.
func NewInt(instances, bits int) (*Converter, error) {
	return newInteger(KindInt, instances, bits)
}

func newInteger(kind Kind, instances, bits int) (*Converter, error) {
	switch instances {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("%w: instances must be 1, 2, 4 or 8, got %d", ErrInvalidParams, instances)
	}
	switch bits {
	case 8, 16, 32, 64:
	default:
		return nil, fmt.Errorf("%w: bits must be 8, 16, 32 or 64, got %d", ErrInvalidParams, bits)
	}
	if bits/8*instances > frame.MaxDataLen {
		return nil, fmt.Errorf("%w: %d instances of %d bits exceed %d bytes", ErrInvalidParams, instances, bits, frame.MaxDataLen)
	}
	prefix := ""
	if instances > 1 {
		prefix = fmt.Sprintf("%d", instances)
	}
	return &Converter{
		kind:      kind,
		bits:      bits,
		instances: instances,
		name:      fmt.Sprintf("%s%s%d2ascii", prefix, kind, bits),
	}, nil
}

// Name is the registry key and the token used in route files.
func (c *Converter) Name() string {
	return c.name
}

func (c *Converter) String() string {
	return c.name
}

func (c *Converter) Kind() Kind {
	return c.kind
}

// TowardsBroker converts a bus payload into a broker payload.
func (c *Converter) TowardsBroker(d frame.Data) ([]byte, error) {
	switch c.kind {
	case KindNone, KindMyMode:
		return d.Bytes(), nil
	case KindByteColor:
		return c.colorToBroker(d)
	case KindPixelBin:
		return c.pixelToBroker(d)
	case KindSixteenBool:
		return c.boolsToBroker(d)
	case KindUint, KindInt:
		return c.integersToBroker(d)
	default:
		return nil, fail(c, TowardsBroker, ErrInvalidParams, "unknown kind %s", c.kind)
	}
}

// TowardsBus converts a broker payload into a bus payload.
func (c *Converter) TowardsBus(payload []byte) (frame.Data, error) {
	switch c.kind {
	case KindNone, KindMyMode:
		return truncate(payload), nil
	case KindByteColor:
		return c.colorToBus(payload)
	case KindPixelBin:
		return c.pixelToBus(payload)
	case KindSixteenBool:
		return c.boolsToBus(payload)
	case KindUint, KindInt:
		return c.integersToBus(payload)
	default:
		return frame.Data{}, fail(c, TowardsBus, ErrInvalidParams, "unknown kind %s", c.kind)
	}
}

func truncate(payload []byte) frame.Data {
	if len(payload) > frame.MaxDataLen {
		payload = payload[:frame.MaxDataLen]
	}
	d, _ := frame.NewData(payload)
	return d
}

// asciiText returns payload as a string when every byte is 7-bit ASCII.
func asciiText(c *Converter, payload []byte) (string, error) {
	for i, b := range payload {
		if b > 0x7F {
			return "", fail(c, TowardsBus, ErrNonASCII, "byte %d is 0x%02x", i, b)
		}
	}
	return string(payload), nil
}
