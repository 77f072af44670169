package main

import (
	"io"

	"github.com/spf13/pflag"

	"github.com/danmuck/can2mqtt/internal/config"
)

// parseArgs loads the optional config file and applies the flags the user
// set on top of it.
func parseArgs(args []string, stderr io.Writer) (config.Config, error) {
	fs := pflag.NewFlagSet("can2mqtt", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	def := config.Default()

	configPath := fs.String("config", "", "process config file (.toml, .yaml)")
	routes := fs.StringP("file", "f", def.RoutesFile, "route table file")
	iface := fs.StringP("can", "c", def.CANInterface, "CAN interface, or tcp://host:port for a stream gateway")
	conn := fs.StringP("mqtt", "m", def.MQTTConnection, "MQTT connect string tcp://[user[:password]@]host[:port]")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	direction := fs.StringP("direction", "d", def.Direction, "bidirectional|can2mqtt|mqtt2can (or 0|1|2)")
	admin := fs.String("admin", "", "admin api listen address, empty disables")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if fs.Changed("file") {
		cfg.RoutesFile = *routes
	}
	if fs.Changed("can") {
		cfg.CANInterface = *iface
	}
	if fs.Changed("mqtt") {
		cfg.MQTTConnection = *conn
	}
	if fs.Changed("verbose") {
		cfg.Verbose = *verbose
	}
	if fs.Changed("direction") {
		cfg.Direction = *direction
	}
	if fs.Changed("admin") {
		cfg.AdminAddr = *admin
	}

	cfg.Normalize()
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
