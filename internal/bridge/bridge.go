package bridge

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options wires the collaborators of one bridge.
type Options struct {
	Bus           BusTransport
	Broker        BrokerClient
	Load          Loader
	Signals       <-chan struct{}
	Mode          Mode
	QueueCapacity int
	Backoff       BackoffConfig
	Logger        zerolog.Logger
}

// Bridge supervises every actor. The first fatal error stops all of them.
type Bridge struct {
	bus     *BusManager
	broker  *BrokerManager
	reader  *BusReader
	ingress *BrokerIngress
	watcher *Watcher
	log     zerolog.Logger
}

func New(opts Options) *Bridge {
	bus := NewBusManager(opts.Bus, opts.QueueCapacity, opts.Mode, opts.Logger)
	broker := NewBrokerManager(opts.Broker, opts.QueueCapacity, opts.Mode, opts.Logger)
	Link(bus, broker)
	return &Bridge{
		bus:     bus,
		broker:  broker,
		reader:  NewBusReader(opts.Bus, bus, opts.Logger),
		ingress: NewBrokerIngress(opts.Broker, broker, opts.Backoff, opts.Logger),
		watcher: NewWatcher(opts.Signals, opts.Load, bus, broker, opts.Logger),
		log:     opts.Logger,
	}
}

// Watcher exposes route snapshots for the admin API.
func (b *Bridge) Watcher() *Watcher {
	return b.watcher
}

// Run blocks until ctx ends (nil) or an actor fails (*FatalError).
func (b *Bridge) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.bus.Run(ctx) })
	g.Go(func() error { return b.broker.Run(ctx) })
	g.Go(func() error { return b.reader.Run(ctx) })
	g.Go(func() error { return b.ingress.Run(ctx) })
	g.Go(func() error { return b.watcher.Run(ctx) })
	b.log.Info().Msg("bridge running")
	err := g.Wait()
	if err != nil {
		b.log.Error().Err(err).Msg("bridge stopped")
	}
	return err
}
