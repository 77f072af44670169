package bridge

import (
	"context"

	"github.com/danmuck/can2mqtt/internal/observability"
	"github.com/rs/zerolog"
)

// BusReader feeds frames from the bus transport into the bus-side manager.
type BusReader struct {
	bus BusTransport
	mgr *BusManager
	log zerolog.Logger
}

func NewBusReader(bus BusTransport, mgr *BusManager, logger zerolog.Logger) *BusReader {
	return &BusReader{bus: bus, mgr: mgr, log: observability.Component(logger, "bus_reader")}
}

// Run reads until ctx ends. A receive failure is fatal.
func (r *BusReader) Run(ctx context.Context) error {
	for {
		f, err := r.bus.Recv(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return &FatalError{Side: SideBus, Err: err}
		}
		r.log.Trace().Stringer("frame", f).Msg("frame read")
		if err := r.mgr.Rx(ctx, f); err != nil {
			return nil
		}
	}
}
