// Package config holds the process configuration of can2mqtt: defaults,
// file loading (TOML or YAML), validation and templates.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danmuck/can2mqtt/internal/bridge"
	"github.com/danmuck/can2mqtt/internal/transport/mqtt"
)

var ErrInvalid = errors.New("config: invalid")

const clientIDPrefix = "can2mqtt-"

type Config struct {
	RoutesFile            string
	CANInterface          string
	MQTTConnection        string
	MQTTClientID          string
	MQTTAutoReconnect     bool
	Direction             string
	QueueCapacity         int
	BrokerBuffer          int
	OperationTimeout      time.Duration
	PollBackoff           time.Duration
	PollBackoffMax        time.Duration
	PollBackoffMultiplier float64
	ReloadSettle          time.Duration
	AdminAddr             string
	AdminToken            string
	CorsOrigins           []string
	Verbose               bool
}

func Default() Config {
	return Config{
		RoutesFile:            "can2mqtt.csv",
		CANInterface:          "can0",
		MQTTConnection:        "tcp://localhost:1883",
		MQTTAutoReconnect:     true,
		Direction:             bridge.Bidirectional.String(),
		QueueCapacity:         2,
		BrokerBuffer:          1024,
		OperationTimeout:      5 * time.Second,
		PollBackoff:           3 * time.Second,
		PollBackoffMultiplier: 1,
		ReloadSettle:          200 * time.Millisecond,
	}
}

// NewClientID returns a fresh broker client identifier.
func NewClientID() string {
	return clientIDPrefix + uuid.NewString()
}

// Normalize trims string fields and fills the client id when unset.
func (c *Config) Normalize() {
	c.RoutesFile = strings.TrimSpace(c.RoutesFile)
	c.CANInterface = strings.TrimSpace(c.CANInterface)
	c.MQTTConnection = strings.TrimSpace(c.MQTTConnection)
	c.MQTTClientID = strings.TrimSpace(c.MQTTClientID)
	c.Direction = strings.TrimSpace(c.Direction)
	c.AdminAddr = strings.TrimSpace(c.AdminAddr)
	c.AdminToken = strings.TrimSpace(c.AdminToken)
	c.CorsOrigins = normalizeOrigins(c.CorsOrigins)
	if c.MQTTClientID == "" {
		c.MQTTClientID = NewClientID()
	}
}

// Mode parses Direction.
func (c Config) Mode() (bridge.Mode, error) {
	return bridge.ParseMode(c.Direction)
}

// Backoff returns the broker poll retry policy.
func (c Config) Backoff() bridge.BackoffConfig {
	return bridge.BackoffConfig{
		InitialDelay: c.PollBackoff,
		Multiplier:   c.PollBackoffMultiplier,
		MaxDelay:     c.PollBackoffMax,
	}
}

func Validate(c Config) error {
	if strings.TrimSpace(c.RoutesFile) == "" {
		return fmt.Errorf("%w: routes_file is required", ErrInvalid)
	}
	if strings.TrimSpace(c.CANInterface) == "" {
		return fmt.Errorf("%w: can_interface is required", ErrInvalid)
	}
	if _, err := mqtt.ParseEndpoint(c.MQTTConnection); err != nil {
		return fmt.Errorf("%w: mqtt_connection: %v", ErrInvalid, err)
	}
	if _, err := c.Mode(); err != nil {
		return fmt.Errorf("%w: direction %q", ErrInvalid, c.Direction)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue_capacity must be at least 1", ErrInvalid)
	}
	if c.BrokerBuffer < 1 {
		return fmt.Errorf("%w: broker_buffer must be at least 1", ErrInvalid)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("%w: operation_timeout must be positive", ErrInvalid)
	}
	if c.PollBackoff < 0 || c.PollBackoffMax < 0 {
		return fmt.Errorf("%w: poll backoff must not be negative", ErrInvalid)
	}
	if c.PollBackoffMultiplier < 1 {
		return fmt.Errorf("%w: poll_backoff_multiplier must be at least 1", ErrInvalid)
	}
	if c.ReloadSettle < 0 {
		return fmt.Errorf("%w: reload_settle must not be negative", ErrInvalid)
	}
	return nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
