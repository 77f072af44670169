package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/danmuck/can2mqtt/internal/observability"
	"github.com/danmuck/can2mqtt/internal/routing"
	"github.com/rs/zerolog"
)

// Loader parses the route source into a new generation.
type Loader func() (routing.Generation, error)

// Snapshot describes the last generation handed to the managers.
type Snapshot struct {
	Seq      uint64
	LoadedAt time.Time
	Entries  []routing.Entry
	LastErr  string
}

// Watcher turns change signals into reloads. It loads once at start,
// then again for every signal received.
type Watcher struct {
	signals <-chan struct{}
	load    Loader
	bus     *BusManager
	broker  *BrokerManager
	log     zerolog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

func NewWatcher(signals <-chan struct{}, load Loader, bus *BusManager, broker *BrokerManager, logger zerolog.Logger) *Watcher {
	return &Watcher{
		signals: signals,
		load:    load,
		bus:     bus,
		broker:  broker,
		log:     observability.Component(logger, "config_watch"),
	}
}

// Run reloads on start and on every signal until ctx ends or the signal
// channel closes.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.reload(ctx); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.signals:
			if !ok {
				w.log.Warn().Msg("change notifications closed; routes frozen")
				<-ctx.Done()
				return nil
			}
			if err := w.reload(ctx); err != nil {
				return nil
			}
		}
	}
}

// reload returns an error only when ctx ended during fan-out.
func (w *Watcher) reload(ctx context.Context) error {
	gen, err := w.load()
	observability.RecordReload(err, gen.Len())
	if err != nil {
		w.log.Error().Err(err).Msg("route file rejected; keeping previous routes")
		w.mu.Lock()
		w.snap.LastErr = err.Error()
		w.mu.Unlock()
		return nil
	}
	if err := w.bus.Config(ctx, gen.Broker); err != nil {
		return err
	}
	if err := w.broker.Config(ctx, gen.Bus); err != nil {
		return err
	}

	w.mu.Lock()
	w.snap = Snapshot{
		Seq:      w.snap.Seq + 1,
		LoadedAt: time.Now(),
		Entries:  gen.Entries,
	}
	seq := w.snap.Seq
	w.mu.Unlock()

	w.log.Info().Uint64("generation", seq).Int("routes", gen.Len()).Msg("routes loaded")
	return nil
}

// Snapshot returns the last adopted generation; ok is false before the
// first successful load.
func (w *Watcher) Snapshot() (Snapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snap, w.snap.Seq > 0
}
