package bridge

import (
	"context"

	"github.com/danmuck/can2mqtt/internal/observability"
	"github.com/danmuck/can2mqtt/internal/protocol"
	"github.com/danmuck/can2mqtt/internal/protocol/frame"
	"github.com/danmuck/can2mqtt/internal/routing"
	"github.com/rs/zerolog"
)

type brokerEventKind int

const (
	brokerConfig brokerEventKind = iota + 1
	brokerRx
	brokerTx
	brokerResync
)

type brokerEvent struct {
	kind  brokerEventKind
	table routing.BusTable
	msg   protocol.Message
}

// BrokerManager owns the broker client and the topic route table.
type BrokerManager struct {
	inbox  chan brokerEvent
	client BrokerClient
	peer   *BusManager
	table  routing.BusTable
	mode   Mode
	log    zerolog.Logger
}

func NewBrokerManager(client BrokerClient, capacity int, mode Mode, logger zerolog.Logger) *BrokerManager {
	if capacity < 1 {
		capacity = 1
	}
	return &BrokerManager{
		inbox:  make(chan brokerEvent, capacity),
		client: client,
		table:  routing.BusTable{},
		mode:   mode,
		log:    observability.Component(logger, "broker_manager"),
	}
}

// Link connects the two managers so each can hand converted traffic to
// the other.
func Link(bus *BusManager, broker *BrokerManager) {
	bus.peer = broker
	broker.peer = bus
}

// Config queues a table replacement.
func (m *BrokerManager) Config(ctx context.Context, table routing.BusTable) error {
	return send(ctx, m.inbox, brokerEvent{kind: brokerConfig, table: table})
}

// Rx queues a message delivered by the broker.
func (m *BrokerManager) Rx(ctx context.Context, msg protocol.Message) error {
	return send(ctx, m.inbox, brokerEvent{kind: brokerRx, msg: msg})
}

// Tx queues a message to publish.
func (m *BrokerManager) Tx(ctx context.Context, msg protocol.Message) error {
	return send(ctx, m.inbox, brokerEvent{kind: brokerTx, msg: msg})
}

// Resync queues a resubscribe of every topic in the current table.
func (m *BrokerManager) Resync(ctx context.Context) error {
	return send(ctx, m.inbox, brokerEvent{kind: brokerResync})
}

// Run processes the inbox until ctx ends.
func (m *BrokerManager) Run(ctx context.Context) error {
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

func (m *BrokerManager) handle(ctx context.Context, ev brokerEvent) error {
	switch ev.kind {
	case brokerConfig:
		m.reconfigure(ctx, ev.table)
		return nil
	case brokerResync:
		if m.mode.towardsBus() {
			for _, topic := range m.table.Topics() {
				m.subscribe(ctx, topic)
			}
		}
		return nil
	case brokerRx:
		return m.forward(ctx, ev.msg)
	case brokerTx:
		m.publish(ctx, ev.msg)
		return nil
	default:
		return nil
	}
}

// reconfigure drops every old subscription before taking the new ones.
func (m *BrokerManager) reconfigure(ctx context.Context, next routing.BusTable) {
	if m.mode.towardsBus() {
		for _, topic := range m.table.Topics() {
			m.unsubscribe(ctx, topic)
		}
		for _, topic := range next.Topics() {
			m.subscribe(ctx, topic)
		}
	}
	m.table = next
	m.log.Debug().Int("routes", len(next)).Msg("route table replaced")
}

func (m *BrokerManager) forward(ctx context.Context, msg protocol.Message) error {
	if !m.mode.towardsBus() {
		observability.RecordFrame(observability.DirectionToBus, observability.ResultFiltered)
		return nil
	}
	route, ok := m.table[msg.Topic()]
	if !ok {
		observability.RecordFrame(observability.DirectionToBus, observability.ResultUnmapped)
		return nil
	}
	data, err := route.Conv.TowardsBus(msg.Payload())
	if err != nil {
		observability.RecordFrame(observability.DirectionToBus, observability.ResultConversionError)
		m.log.Warn().Err(err).Str("topic", msg.Topic()).Stringer("id", route.ID).Msg("dropping message")
		return nil
	}
	if err := m.peer.Tx(ctx, frame.FromData(route.ID, data)); err != nil {
		return err
	}
	observability.RecordFrame(observability.DirectionToBus, observability.ResultForwarded)
	return nil
}

// publish runs unsubscribe, publish, subscribe in that order, each step
// awaited. Failed steps are logged and the sequence continues.
func (m *BrokerManager) publish(ctx context.Context, msg protocol.Message) {
	if !m.mode.towardsBus() {
		m.call(ctx, "publish", msg.Topic(), func() error {
			return m.client.Publish(ctx, msg.Topic(), msg.Payload(), protocol.AtLeastOnce)
		})
		return
	}
	m.unsubscribe(ctx, msg.Topic())
	m.call(ctx, "publish", msg.Topic(), func() error {
		return m.client.Publish(ctx, msg.Topic(), msg.Payload(), protocol.AtLeastOnce)
	})
	m.subscribe(ctx, msg.Topic())
}

func (m *BrokerManager) subscribe(ctx context.Context, topic string) {
	m.call(ctx, "subscribe", topic, func() error {
		return m.client.Subscribe(ctx, topic, protocol.AtLeastOnce)
	})
}

func (m *BrokerManager) unsubscribe(ctx context.Context, topic string) {
	m.call(ctx, "unsubscribe", topic, func() error {
		return m.client.Unsubscribe(ctx, topic)
	})
}

func (m *BrokerManager) call(ctx context.Context, op, topic string, fn func() error) {
	err := fn()
	observability.RecordBrokerOp(op, err)
	if err != nil && ctx.Err() == nil {
		m.log.Error().Err(err).Str("op", op).Str("topic", topic).Msg("broker call failed")
	}
}
