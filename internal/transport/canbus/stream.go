package canbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/can2mqtt/internal/protocol/frame"
)

// Stream carries raw struct can_frame records over a byte stream, such
// as a TCP CAN gateway.
type Stream struct {
	conn net.Conn
	*pump
	log zerolog.Logger

	writeMu sync.Mutex
}

// DialStream connects to a gateway at addr (host:port).
func DialStream(ctx context.Context, addr string, buffer int, logger zerolog.Logger) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("canbus: dial %s: %w", addr, err)
	}
	return NewStream(conn, buffer, logger), nil
}

// NewStream starts reading frames from conn.
func NewStream(conn net.Conn, buffer int, logger zerolog.Logger) *Stream {
	s := &Stream{
		conn: conn,
		pump: newPump(buffer),
		log:  logger.With().Str("component", "can_stream").Str("remote", conn.RemoteAddr().String()).Logger(),
	}
	go s.readLoop()
	return s
}

func (s *Stream) readLoop() {
	for {
		f, flags, err := frame.ReadFrame(s.conn)
		if err != nil {
			if errors.Is(err, frame.ErrInvalidDLC) {
				s.log.Warn().Err(err).Msg("ignoring malformed frame")
				continue
			}
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("canbus: gateway closed the stream: %w", err)
			}
			s.stop(err)
			return
		}
		if !dataFrame(flags) {
			continue
		}
		s.deliver(f)
	}
}

func (s *Stream) Recv(ctx context.Context) (frame.Frame, error) {
	return s.recv(ctx)
}

func (s *Stream) Send(ctx context.Context, f frame.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("canbus: set deadline: %w", err)
	}
	if err := frame.WriteFrame(s.conn, f); err != nil {
		return fmt.Errorf("canbus: write: %w", err)
	}
	return nil
}

func (s *Stream) Close() error {
	s.stop(nil)
	return s.conn.Close()
}
