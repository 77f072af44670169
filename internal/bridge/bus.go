package bridge

import (
	"context"

	"github.com/danmuck/can2mqtt/internal/observability"
	"github.com/danmuck/can2mqtt/internal/protocol"
	"github.com/danmuck/can2mqtt/internal/protocol/frame"
	"github.com/danmuck/can2mqtt/internal/routing"
	"github.com/rs/zerolog"
)

type busEventKind int

const (
	busConfig busEventKind = iota + 1
	busRx
	busTx
)

type busEvent struct {
	kind  busEventKind
	table routing.BrokerTable
	frame frame.Frame
}

// BusManager owns the bus transport and the identifier route table.
type BusManager struct {
	inbox chan busEvent
	bus   BusTransport
	peer  *BrokerManager
	table routing.BrokerTable
	mode  Mode
	log   zerolog.Logger
}

func NewBusManager(bus BusTransport, capacity int, mode Mode, logger zerolog.Logger) *BusManager {
	if capacity < 1 {
		capacity = 1
	}
	return &BusManager{
		inbox: make(chan busEvent, capacity),
		bus:   bus,
		table: routing.BrokerTable{},
		mode:  mode,
		log:   observability.Component(logger, "bus_manager"),
	}
}

// Config queues a table replacement.
func (m *BusManager) Config(ctx context.Context, table routing.BrokerTable) error {
	return send(ctx, m.inbox, busEvent{kind: busConfig, table: table})
}

// Rx queues a frame read from the bus.
func (m *BusManager) Rx(ctx context.Context, f frame.Frame) error {
	return send(ctx, m.inbox, busEvent{kind: busRx, frame: f})
}

// Tx queues a frame to be written to the bus.
func (m *BusManager) Tx(ctx context.Context, f frame.Frame) error {
	return send(ctx, m.inbox, busEvent{kind: busTx, frame: f})
}

// Run processes the inbox until ctx ends or the bus write fails.
func (m *BusManager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.inbox:
			if err := m.handle(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (m *BusManager) handle(ctx context.Context, ev busEvent) error {
	switch ev.kind {
	case busConfig:
		m.table = ev.table
		m.log.Debug().Int("routes", len(ev.table)).Msg("route table replaced")
		return nil
	case busRx:
		return m.forward(ctx, ev.frame)
	case busTx:
		if err := m.bus.Send(ctx, ev.frame); err != nil {
			return &FatalError{Side: SideBus, Err: err}
		}
		m.log.Trace().Stringer("frame", ev.frame).Msg("frame written")
		return nil
	default:
		return nil
	}
}

func (m *BusManager) forward(ctx context.Context, f frame.Frame) error {
	if !m.mode.towardsBroker() {
		observability.RecordFrame(observability.DirectionToBroker, observability.ResultFiltered)
		return nil
	}
	route, ok := m.table[f.ID()]
	if !ok {
		observability.RecordFrame(observability.DirectionToBroker, observability.ResultUnmapped)
		return nil
	}
	payload, err := route.Conv.TowardsBroker(f.Data())
	if err != nil {
		observability.RecordFrame(observability.DirectionToBroker, observability.ResultConversionError)
		m.log.Warn().Err(err).Stringer("id", f.ID()).Str("topic", route.Topic).Msg("dropping frame")
		return nil
	}
	msg, err := protocol.NewMessage(route.Topic, payload, protocol.AtLeastOnce)
	if err != nil {
		m.log.Warn().Err(err).Stringer("id", f.ID()).Msg("dropping frame")
		return nil
	}
	if err := m.peer.Tx(ctx, msg); err != nil {
		return err
	}
	observability.RecordFrame(observability.DirectionToBroker, observability.ResultForwarded)
	return nil
}
