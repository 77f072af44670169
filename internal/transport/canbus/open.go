package canbus

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/danmuck/can2mqtt/internal/bridge"
)

const streamPrefix = "tcp://"

// Transport is a bus transport that can be released.
type Transport interface {
	bridge.BusTransport
	Close() error
}

// Open selects the transport from target: "tcp://host:port" dials a
// stream gateway, anything else names a SocketCAN interface.
func Open(ctx context.Context, target string, buffer int, logger zerolog.Logger) (Transport, error) {
	if addr, ok := strings.CutPrefix(target, streamPrefix); ok {
		return DialStream(ctx, addr, buffer, logger)
	}
	return OpenSocketCAN(target, buffer, logger)
}
