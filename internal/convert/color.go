package convert

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/can2mqtt/internal/protocol/frame"
)

const (
	colorLen = 3
	pixelLen = 4
)

func (c *Converter) colorToBroker(d frame.Data) ([]byte, error) {
	b := d.Bytes()
	if len(b) != colorLen {
		return nil, fail(c, TowardsBroker, ErrLength, "want %d bytes, got %d", colorLen, len(b))
	}
	return []byte(formatColor(b)), nil
}

func (c *Converter) colorToBus(payload []byte) (frame.Data, error) {
	text, err := asciiText(c, payload)
	if err != nil {
		return frame.Data{}, err
	}
	rgb, err := c.parseColor(text)
	if err != nil {
		return frame.Data{}, err
	}
	return frame.NewData(rgb)
}

func (c *Converter) pixelToBroker(d frame.Data) ([]byte, error) {
	b := d.Bytes()
	if len(b) != pixelLen {
		return nil, fail(c, TowardsBroker, ErrLength, "want %d bytes, got %d", pixelLen, len(b))
	}
	return []byte(fmt.Sprintf("%d %s", b[0], formatColor(b[1:]))), nil
}

func (c *Converter) pixelToBus(payload []byte) (frame.Data, error) {
	text, err := asciiText(c, payload)
	if err != nil {
		return frame.Data{}, err
	}
	fields := strings.Split(text, " ")
	if len(fields) != 2 {
		return frame.Data{}, fail(c, TowardsBus, ErrTokenCount, "want 2 fields, got %d", len(fields))
	}
	index, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return frame.Data{}, fail(c, TowardsBus, ErrNumber, "pixel index %q", fields[0])
	}
	rgb, err := c.parseColor(fields[1])
	if err != nil {
		return frame.Data{}, err
	}
	return frame.NewData(append([]byte{byte(index)}, rgb...))
}

func formatColor(rgb []byte) string {
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

// parseColor accepts "rrggbb" with one optional leading '#'.
func (c *Converter) parseColor(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 2*colorLen {
		return nil, fail(c, TowardsBus, ErrHex, "want 6 nibbles, got %d", len(s))
	}
	rgb, err := hex.DecodeString(s)
	if err != nil {
		return nil, fail(c, TowardsBus, ErrHex, "%v", err)
	}
	return rgb, nil
}
