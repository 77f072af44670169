package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of Config. Durations are Go duration strings.
type File struct {
	RoutesFile            string   `toml:"routes_file" yaml:"routes_file" comment:"route table, one id,converter,topic record per line"`
	CANInterface          string   `toml:"can_interface" yaml:"can_interface" comment:"SocketCAN interface, or tcp://host:port for a stream gateway"`
	MQTTConnection        string   `toml:"mqtt_connection" yaml:"mqtt_connection" comment:"tcp://[user[:password]@]host[:port]"`
	MQTTClientID          string   `toml:"mqtt_client_id" yaml:"mqtt_client_id" comment:"empty generates can2mqtt-<uuid>"`
	MQTTAutoReconnect     bool     `toml:"mqtt_auto_reconnect" yaml:"mqtt_auto_reconnect"`
	Direction             string   `toml:"direction" yaml:"direction" comment:"bidirectional, can2mqtt or mqtt2can"`
	QueueCapacity         int      `toml:"queue_capacity" yaml:"queue_capacity"`
	BrokerBuffer          int      `toml:"broker_buffer" yaml:"broker_buffer"`
	OperationTimeout      string   `toml:"operation_timeout" yaml:"operation_timeout"`
	PollBackoff           string   `toml:"poll_backoff" yaml:"poll_backoff"`
	PollBackoffMax        string   `toml:"poll_backoff_max" yaml:"poll_backoff_max" comment:"0 leaves the delay uncapped"`
	PollBackoffMultiplier float64  `toml:"poll_backoff_multiplier" yaml:"poll_backoff_multiplier"`
	ReloadSettle          string   `toml:"reload_settle" yaml:"reload_settle"`
	AdminAddr             string   `toml:"admin_addr" yaml:"admin_addr" comment:"empty disables the admin api"`
	AdminToken            string   `toml:"admin_token" yaml:"admin_token" comment:"bearer token required by POST /api/reload, empty leaves it open"`
	CorsOrigins           []string `toml:"cors_origins" yaml:"cors_origins"`
	Verbose               bool     `toml:"verbose" yaml:"verbose"`
}

// Load reads path over Default(). Keys absent from the file keep their
// defaults. Files ending in .yaml or .yml are YAML, everything else TOML.
func Load(path string) (Config, error) {
	var (
		raw     File
		defined func(string) bool
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		defined, err = decodeYAML(path, &raw)
	default:
		defined, err = decodeTOML(path, &raw)
	}
	if err != nil {
		return Config{}, err
	}
	cfg, err := apply(Default(), raw, defined)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeTOML(path string, out *File) (func(string) bool, error) {
	meta, err := toml.DecodeFile(path, out)
	if err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return func(key string) bool { return meta.IsDefined(key) }, nil
}

func decodeYAML(path string, out *File) (func(string) bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	keys := map[string]bool{}
	if len(bytes.TrimSpace(data)) == 0 {
		return func(string) bool { return false }, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if len(doc.Content) == 1 && doc.Content[0].Kind == yaml.MappingNode {
		root := doc.Content[0]
		for i := 0; i+1 < len(root.Content); i += 2 {
			keys[root.Content[i].Value] = true
		}
	}
	if err := doc.Decode(out); err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return func(key string) bool { return keys[key] }, nil
}

func apply(cfg Config, raw File, defined func(string) bool) (Config, error) {
	if defined("routes_file") {
		cfg.RoutesFile = raw.RoutesFile
	}
	if defined("can_interface") {
		cfg.CANInterface = raw.CANInterface
	}
	if defined("mqtt_connection") {
		cfg.MQTTConnection = raw.MQTTConnection
	}
	if defined("mqtt_client_id") {
		cfg.MQTTClientID = raw.MQTTClientID
	}
	if defined("mqtt_auto_reconnect") {
		cfg.MQTTAutoReconnect = raw.MQTTAutoReconnect
	}
	if defined("direction") {
		cfg.Direction = raw.Direction
	}
	if defined("queue_capacity") {
		cfg.QueueCapacity = raw.QueueCapacity
	}
	if defined("broker_buffer") {
		cfg.BrokerBuffer = raw.BrokerBuffer
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"operation_timeout", raw.OperationTimeout, &cfg.OperationTimeout},
		{"poll_backoff", raw.PollBackoff, &cfg.PollBackoff},
		{"poll_backoff_max", raw.PollBackoffMax, &cfg.PollBackoffMax},
		{"reload_settle", raw.ReloadSettle, &cfg.ReloadSettle},
	}
	for _, d := range durations {
		if !defined(d.key) {
			continue
		}
		v, err := parseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	if defined("poll_backoff_multiplier") {
		cfg.PollBackoffMultiplier = raw.PollBackoffMultiplier
	}
	if defined("admin_addr") {
		cfg.AdminAddr = raw.AdminAddr
	}
	if defined("admin_token") {
		cfg.AdminToken = raw.AdminToken
	}
	if defined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if defined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	return cfg, nil
}

func parseDuration(raw string) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if v == "" || v == "0" {
		return 0, nil
	}
	return time.ParseDuration(v)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0"
	}
	return d.String()
}

// ToFile renders cfg in its on-disk shape.
func ToFile(cfg Config) File {
	return File{
		RoutesFile:            cfg.RoutesFile,
		CANInterface:          cfg.CANInterface,
		MQTTConnection:        cfg.MQTTConnection,
		MQTTClientID:          cfg.MQTTClientID,
		MQTTAutoReconnect:     cfg.MQTTAutoReconnect,
		Direction:             cfg.Direction,
		QueueCapacity:         cfg.QueueCapacity,
		BrokerBuffer:          cfg.BrokerBuffer,
		OperationTimeout:      formatDuration(cfg.OperationTimeout),
		PollBackoff:           formatDuration(cfg.PollBackoff),
		PollBackoffMax:        formatDuration(cfg.PollBackoffMax),
		PollBackoffMultiplier: cfg.PollBackoffMultiplier,
		ReloadSettle:          formatDuration(cfg.ReloadSettle),
		AdminAddr:             cfg.AdminAddr,
		AdminToken:            cfg.AdminToken,
		CorsOrigins:           cfg.CorsOrigins,
		Verbose:               cfg.Verbose,
	}
}
