package canbus

import (
	"context"
	"errors"
	"sync"

	"github.com/danmuck/can2mqtt/internal/protocol/frame"
)

var ErrStopped = errors.New("canbus: receive loop stopped")

// pump hands frames from a driver goroutine to Recv callers.
type pump struct {
	frames chan frame.Frame

	stopOnce sync.Once
	stopped  chan struct{}
	err      error
}

func newPump(buffer int) *pump {
	if buffer < 1 {
		buffer = 1
	}
	return &pump{
		frames:  make(chan frame.Frame, buffer),
		stopped: make(chan struct{}),
	}
}

// deliver blocks until the frame is queued or the pump stops.
func (p *pump) deliver(f frame.Frame) {
	select {
	case p.frames <- f:
	case <-p.stopped:
	}
}

func (p *pump) stop(err error) {
	p.stopOnce.Do(func() {
		if err == nil {
			err = ErrStopped
		}
		p.err = err
		close(p.stopped)
	})
}

func (p *pump) recv(ctx context.Context) (frame.Frame, error) {
	select {
	case f := <-p.frames:
		return f, nil
	case <-p.stopped:
		return frame.Frame{}, p.err
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	}
}

// dataFrame reports whether flags describe a plain data frame.
func dataFrame(flags uint32) bool {
	return flags&(frame.FlagRTR|frame.FlagERR) == 0
}
