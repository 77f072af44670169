package convert

import (
	"strings"

	"github.com/danmuck/can2mqtt/internal/protocol/frame"
)

const (
	boolCount   = 16
	boolTextLen = 2*boolCount - 1
)

func (c *Converter) boolsToBroker(d frame.Data) ([]byte, error) {
	b := d.Bytes()
	if len(b) != 2 {
		return nil, fail(c, TowardsBroker, ErrLength, "want 2 bytes, got %d", len(b))
	}
	out := make([]byte, 0, boolTextLen)
	for i := 0; i < boolCount; i++ {
		if i > 0 {
			out = append(out, ' ')
		}
		bit := b[i/8] >> (7 - uint(i%8)) & 1
		out = append(out, '0'+bit)
	}
	return out, nil
}

func (c *Converter) boolsToBus(payload []byte) (frame.Data, error) {
	text, err := asciiText(c, payload)
	if err != nil {
		return frame.Data{}, err
	}
	if len(text) != boolTextLen {
		return frame.Data{}, fail(c, TowardsBus, ErrLength, "want %d bytes of text, got %d", boolTextLen, len(text))
	}
	tokens := strings.Split(text, " ")
	if len(tokens) != boolCount {
		return frame.Data{}, fail(c, TowardsBus, ErrTokenCount, "want %d tokens, got %d", boolCount, len(tokens))
	}
	var out [2]byte
	for i, tok := range tokens {
		switch tok {
		case "0":
		case "1":
			out[i/8] |= 1 << (7 - uint(i%8))
		default:
			return frame.Data{}, fail(c, TowardsBus, ErrToken, "token %d is %q", i, tok)
		}
	}
	return frame.NewData(out[:])
}
