package canbus

import (
	"context"
	"fmt"

	"github.com/brutella/can"
	"github.com/rs/zerolog"

	"github.com/danmuck/can2mqtt/internal/protocol/frame"
)

const idMask = uint32(frame.MaxID)

// SocketCAN is a bus transport bound to a Linux CAN interface.
type SocketCAN struct {
	name string
	bus  *can.Bus
	*pump
	log zerolog.Logger
}

// OpenSocketCAN binds to iface and starts the receive loop.
func OpenSocketCAN(iface string, buffer int, logger zerolog.Logger) (*SocketCAN, error) {
	bus, err := can.NewBusForInterfaceWithName(iface)
	if err != nil {
		return nil, fmt.Errorf("canbus: open %s: %w", iface, err)
	}
	s := &SocketCAN{
		name: iface,
		bus:  bus,
		pump: newPump(buffer),
		log:  logger.With().Str("component", "socketcan").Str("interface", iface).Logger(),
	}
	bus.SubscribeFunc(s.handle)
	go func() {
		err := bus.ConnectAndPublish()
		s.log.Error().Err(err).Msg("receive loop ended")
		s.stop(err)
	}()
	s.log.Info().Msg("connected to CAN")
	return s, nil
}

func (s *SocketCAN) handle(cf can.Frame) {
	f, flags, err := fromCAN(cf)
	if err != nil {
		s.log.Warn().Err(err).Msg("ignoring malformed frame")
		return
	}
	if !dataFrame(flags) {
		return
	}
	s.deliver(f)
}

func (s *SocketCAN) Recv(ctx context.Context) (frame.Frame, error) {
	return s.recv(ctx)
}

func (s *SocketCAN) Send(ctx context.Context, f frame.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.bus.Publish(toCAN(f)); err != nil {
		return fmt.Errorf("canbus: write %s: %w", s.name, err)
	}
	return nil
}

func (s *SocketCAN) Close() error {
	s.stop(nil)
	return s.bus.Disconnect()
}

// toCAN sets the extended frame flag for identifiers above 11 bits.
func toCAN(f frame.Frame) can.Frame {
	var cf can.Frame
	cf.ID = uint32(f.ID())
	if f.ID().Extended() {
		cf.ID |= frame.FlagEFF
	}
	b := f.Data().Bytes()
	cf.Length = uint8(len(b))
	copy(cf.Data[:], b)
	return cf
}

// fromCAN masks the flag bits off the identifier and returns them.
func fromCAN(cf can.Frame) (frame.Frame, uint32, error) {
	if int(cf.Length) > frame.MaxDataLen {
		return frame.Frame{}, 0, fmt.Errorf("%w: %d", frame.ErrInvalidDLC, cf.Length)
	}
	f, err := frame.New(frame.ID(cf.ID&idMask), cf.Data[:cf.Length])
	if err != nil {
		return frame.Frame{}, 0, err
	}
	return f, cf.ID &^ idMask, nil
}
