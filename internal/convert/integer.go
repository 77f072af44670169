package convert

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/danmuck/can2mqtt/internal/protocol/frame"
)

func (c *Converter) width() int {
	return c.bits / 8
}

func (c *Converter) integersToBroker(d frame.Data) ([]byte, error) {
	b := d.Bytes()
	want := c.width() * c.instances
	if len(b) != want {
		return nil, fail(c, TowardsBroker, ErrLength, "want %d bytes, got %d", want, len(b))
	}
	parts := make([]string, c.instances)
	for i := range parts {
		raw := readLE(b[i*c.width() : (i+1)*c.width()])
		if c.kind == KindInt {
			parts[i] = strconv.FormatInt(signExtend(raw, c.bits), 10)
		} else {
			parts[i] = strconv.FormatUint(raw, 10)
		}
	}
	return []byte(strings.Join(parts, " ")), nil
}

func (c *Converter) integersToBus(payload []byte) (frame.Data, error) {
	text, err := asciiText(c, payload)
	if err != nil {
		return frame.Data{}, err
	}
	tokens := strings.Split(text, " ")
	if len(tokens) != c.instances {
		return frame.Data{}, fail(c, TowardsBus, ErrTokenCount, "want %d numbers, got %d", c.instances, len(tokens))
	}
	out := make([]byte, 0, c.width()*c.instances)
	for i, tok := range tokens {
		var raw uint64
		if c.kind == KindInt {
			v, err := strconv.ParseInt(tok, 10, c.bits)
			if err != nil {
				return frame.Data{}, fail(c, TowardsBus, ErrNumber, "token %d %q", i, tok)
			}
			raw = uint64(v)
		} else {
			v, err := strconv.ParseUint(tok, 10, c.bits)
			if err != nil {
				return frame.Data{}, fail(c, TowardsBus, ErrNumber, "token %d %q", i, tok)
			}
			raw = v
		}
		out = appendLE(out, raw, c.width())
	}
	return frame.NewData(out)
}

func readLE(b []byte) uint64 {
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

func appendLE(dst []byte, v uint64, width int) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:width]...)
}

func signExtend(v uint64, bits int) int64 {
	shift := uint(64 - bits)
	return int64(v<<shift) >> shift
}
