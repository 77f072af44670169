package bridge

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/danmuck/can2mqtt/internal/observability"
	"github.com/rs/zerolog"
)

// BrokerIngress drains the broker client's event stream into the
// broker-side manager.
type BrokerIngress struct {
	client  BrokerClient
	mgr     *BrokerManager
	backoff BackoffConfig
	rng     *rand.Rand
	log     zerolog.Logger
}

func NewBrokerIngress(client BrokerClient, mgr *BrokerManager, backoff BackoffConfig, logger zerolog.Logger) *BrokerIngress {
	return &BrokerIngress{
		client:  client,
		mgr:     mgr,
		backoff: backoff,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     observability.Component(logger, "broker_ingress"),
	}
}

// Run polls until ctx ends. Poll errors are retried forever after a
// backoff delay; only ErrClosed ends the loop with a FatalError.
func (p *BrokerIngress) Run(ctx context.Context) error {
	attempt := 0
	connected := 0
	for {
		ev, err := p.client.Poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return &FatalError{Side: SideBroker, Err: err}
			}
			attempt++
			delay := NextBackoffDelay(p.backoff, attempt, p.rng)
			p.log.Error().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("broker poll failed")
			if err := sleepCtx(ctx, delay); err != nil {
				return nil
			}
			continue
		}
		attempt = 0

		switch ev.Kind {
		case EventConnected:
			connected++
			p.log.Info().Int("session", connected).Msg("broker connected")
			if connected > 1 {
				if err := p.mgr.Resync(ctx); err != nil {
					return nil
				}
			}
		case EventConnectionLost:
			p.log.Warn().Err(ev.Err).Msg("broker connection lost")
		case EventMessage:
			if err := p.mgr.Rx(ctx, ev.Message); err != nil {
				return nil
			}
		}
	}
}
