package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/can2mqtt/internal/auth"
	"github.com/danmuck/can2mqtt/internal/bridge"
	"github.com/danmuck/can2mqtt/internal/config"
	"github.com/danmuck/can2mqtt/internal/convert"
	"github.com/danmuck/can2mqtt/internal/logging"
	"github.com/danmuck/can2mqtt/internal/routing"
	"github.com/danmuck/can2mqtt/internal/server"
	"github.com/danmuck/can2mqtt/internal/transport/canbus"
	"github.com/danmuck/can2mqtt/internal/transport/mqtt"
	"github.com/danmuck/can2mqtt/internal/watch"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "can2mqtt: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	cfg, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	logger := logging.ConfigureRuntime(cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logger)
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	mode, err := cfg.Mode()
	if err != nil {
		return &bridge.FatalError{Side: bridge.SideConfig, Err: err}
	}
	reg := convert.DefaultRegistry()

	bus, err := canbus.Open(ctx, cfg.CANInterface, cfg.QueueCapacity, logger)
	if err != nil {
		return &bridge.FatalError{Side: bridge.SideBus, Err: err}
	}
	defer bus.Close()

	client, err := mqtt.Dial(ctx, mqtt.Config{
		Connection:       cfg.MQTTConnection,
		ClientID:         cfg.MQTTClientID,
		OperationTimeout: cfg.OperationTimeout,
		Buffer:           cfg.BrokerBuffer,
		AutoReconnect:    cfg.MQTTAutoReconnect,
	}, logger)
	if err != nil {
		return &bridge.FatalError{Side: bridge.SideBroker, Err: err}
	}
	defer client.Close()

	notifier, err := watch.NewFileNotifier(cfg.RoutesFile, cfg.ReloadSettle, logger)
	if err != nil {
		return &bridge.FatalError{Side: bridge.SideConfig, Err: err}
	}
	defer notifier.Close()

	signals := make(chan struct{}, 1)
	b := bridge.New(bridge.Options{
		Bus:    bus,
		Broker: client,
		Load: func() (routing.Generation, error) {
			return routing.LoadFile(cfg.RoutesFile, reg)
		},
		Signals:       signals,
		Mode:          mode,
		QueueCapacity: cfg.QueueCapacity,
		Backoff:       cfg.Backoff(),
		Logger:        logger,
	})

	logger.Info().
		Str("routes", cfg.RoutesFile).
		Str("can", cfg.CANInterface).
		Str("client_id", cfg.MQTTClientID).
		Stringer("direction", mode).
		Int("converters", reg.Len()).
		Msg("can2mqtt starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(ctx) })
	g.Go(func() error { return notifier.Run(ctx, signals) })
	if cfg.AdminAddr != "" {
		opts := server.Options{
			Addr:        cfg.AdminAddr,
			CorsOrigins: cfg.CorsOrigins,
			Routes:      b.Watcher(),
			Reload:      reloadTrigger(signals),
		}
		if cfg.AdminToken != "" {
			opts.Guard = auth.StaticToken{Token: cfg.AdminToken}
		}
		admin := server.New(opts, logger)
		g.Go(func() error { return admin.Run(ctx) })
	}
	return g.Wait()
}

// reloadTrigger queues one reload signal for the watch orchestrator.
func reloadTrigger(signals chan<- struct{}) server.Trigger {
	return func(ctx context.Context) error {
		select {
		case signals <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
