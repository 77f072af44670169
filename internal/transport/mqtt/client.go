package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/danmuck/can2mqtt/internal/bridge"
	"github.com/danmuck/can2mqtt/internal/protocol"
)

var ErrTimeout = errors.New("mqtt: operation timed out")

// Config selects broker, identity and buffering for a Client.
type Config struct {
	Connection       string
	ClientID         string
	OperationTimeout time.Duration
	// Buffer bounds inbound messages waiting for Poll. Messages arriving
	// while it is full are dropped with a warning so the paho router never
	// blocks. Connection events do not count against it and are never
	// dropped.
	Buffer        int
	AutoReconnect bool
}

// Client adapts a paho client to bridge.BrokerClient.
type Client struct {
	cfg      Config
	endpoint Endpoint
	client   paho.Client
	events   chan bridge.Event
	log      zerolog.Logger

	// connected and lost coalesce connection state apart from messages.
	connected chan struct{}
	lost      chan error

	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	ep, err := ParseEndpoint(cfg.Connection)
	if err != nil {
		return nil, err
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = 1
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}
	return &Client{
		cfg:      cfg,
		endpoint: ep,
		events:    make(chan bridge.Event, cfg.Buffer),
		log:       logger.With().Str("component", "mqtt").Logger(),
		connected: make(chan struct{}, 1),
		lost:      make(chan error, 1),
		closed:    make(chan struct{}),
	}, nil
}

// Dial connects to the broker and waits for the first CONNACK.
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	c, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.endpoint.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(cfg.AutoReconnect)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetWriteTimeout(cfg.OperationTimeout)
	if c.endpoint.HasCredentials() {
		user, pw := c.endpoint.Username, c.endpoint.Password
		opts.SetCredentialsProvider(func() (string, string) { return user, pw })
	}
	opts.SetDefaultPublishHandler(c.onMessage)
	opts.OnConnect = func(paho.Client) {
		c.notifyConnected()
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		c.notifyLost(err)
		if !cfg.AutoReconnect {
			c.markClosed()
		}
	}

	c.client = paho.NewClient(opts)
	c.log.Info().Stringer("broker", c.endpoint).Str("client_id", cfg.ClientID).Msg("connecting to mqtt broker")
	if err := c.await(ctx, c.client.Connect()); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", c.endpoint, err)
	}
	return c, nil
}

func (c *Client) Subscribe(ctx context.Context, topic string, qos protocol.QoS) error {
	if err := c.await(ctx, c.client.Subscribe(topic, byte(qos), nil)); err != nil {
		return fmt.Errorf("mqtt: subscribe %q: %w", topic, err)
	}
	c.log.Debug().Str("topic", topic).Msg("subscribed")
	return nil
}

func (c *Client) Unsubscribe(ctx context.Context, topic string) error {
	if err := c.await(ctx, c.client.Unsubscribe(topic)); err != nil {
		return fmt.Errorf("mqtt: unsubscribe %q: %w", topic, err)
	}
	c.log.Debug().Str("topic", topic).Msg("unsubscribed")
	return nil
}

func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos protocol.QoS) error {
	if err := c.await(ctx, c.client.Publish(topic, byte(qos), false, payload)); err != nil {
		return fmt.Errorf("mqtt: publish %q: %w", topic, err)
	}
	c.log.Debug().Str("topic", topic).Int("len", len(payload)).Msg("published")
	return nil
}

// Poll returns the next inbound event. A pending connect is reported
// before buffered messages. bridge.ErrClosed means the client will never
// deliver again.
func (c *Client) Poll(ctx context.Context) (bridge.Event, error) {
	select {
	case <-c.connected:
		return bridge.Event{Kind: bridge.EventConnected}, nil
	default:
	}
	select {
	case <-c.connected:
		return bridge.Event{Kind: bridge.EventConnected}, nil
	case err := <-c.lost:
		return bridge.Event{Kind: bridge.EventConnectionLost, Err: err}, nil
	case ev := <-c.events:
		return ev, nil
	case <-c.closed:
		return bridge.Event{}, bridge.ErrClosed
	case <-ctx.Done():
		return bridge.Event{}, ctx.Err()
	}
}

// Close disconnects and ends Poll.
func (c *Client) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	c.markClosed()
}

func (c *Client) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Client) onMessage(_ paho.Client, m paho.Message) {
	msg, err := protocol.NewMessage(m.Topic(), m.Payload(), protocol.QoS(m.Qos()))
	if err != nil {
		c.log.Warn().Err(err).Str("topic", m.Topic()).Msg("ignoring inbound message")
		return
	}
	c.push(bridge.Event{Kind: bridge.EventMessage, Message: msg})
}

// push never blocks the paho router; a full buffer drops the message.
func (c *Client) push(ev bridge.Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn().Str("topic", ev.Message.Topic()).Msg("inbound buffer full; message dropped")
	}
}

// notifyConnected marks a connect as pending. Repeated connects before the
// next Poll collapse into one.
func (c *Client) notifyConnected() {
	select {
	case c.connected <- struct{}{}:
	default:
	}
}

// notifyLost keeps the first unread loss; later ones only differ in error.
func (c *Client) notifyLost(err error) {
	select {
	case c.lost <- err:
	default:
		c.log.Debug().Err(err).Msg("connection lost again before poll")
	}
}

func (c *Client) await(ctx context.Context, tok paho.Token) error {
	timer := time.NewTimer(c.cfg.OperationTimeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}
