package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/can2mqtt/internal/protocol"
	"github.com/danmuck/can2mqtt/internal/protocol/frame"
)

// ErrClosed is returned by a collaborator whose connection is gone for good.
var ErrClosed = errors.New("bridge: transport closed")

var ErrInvalidMode = errors.New("bridge: invalid direction mode")

// BusTransport is the bus collaborator. Recv blocks until a data frame
// arrives; remote and error frames are not delivered.
type BusTransport interface {
	Recv(ctx context.Context) (frame.Frame, error)
	Send(ctx context.Context, f frame.Frame) error
}

// BrokerClient is the publish-subscribe collaborator. Each call returns
// once the broker has acknowledged it or it failed.
type BrokerClient interface {
	Subscribe(ctx context.Context, topic string, qos protocol.QoS) error
	Unsubscribe(ctx context.Context, topic string) error
	Publish(ctx context.Context, topic string, payload []byte, qos protocol.QoS) error
	Poll(ctx context.Context) (Event, error)
}

// EventKind tags an inbound broker event.
type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventConnectionLost
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventConnectionLost:
		return "connection_lost"
	case EventMessage:
		return "message"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one item from the broker client's inbound stream.
type Event struct {
	Kind    EventKind
	Message protocol.Message
	Err     error
}

// Side names the half of the bridge a fatal error came from.
type Side string

const (
	SideBus    Side = "bus"
	SideBroker Side = "broker"
	SideConfig Side = "config"
)

// FatalError ends the bridge. Run returns the first one raised.
type FatalError struct {
	Side Side
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Side, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Mode restricts which direction traffic may flow.
type Mode int

const (
	Bidirectional Mode = iota
	BusToBroker
	BrokerToBus
)

func (m Mode) String() string {
	switch m {
	case Bidirectional:
		return "bidirectional"
	case BusToBroker:
		return "can2mqtt"
	case BrokerToBus:
		return "mqtt2can"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the mode names and their numeric forms 0, 1 and 2.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "bidirectional", "both":
		return Bidirectional, nil
	case "1", "can2mqtt":
		return BusToBroker, nil
	case "2", "mqtt2can":
		return BrokerToBus, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, raw)
	}
}

func (m Mode) towardsBroker() bool {
	return m != BrokerToBus
}

func (m Mode) towardsBus() bool {
	return m != BusToBroker
}

func send[T any](ctx context.Context, ch chan T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
