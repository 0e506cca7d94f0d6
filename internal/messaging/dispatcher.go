package messaging

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/logger"
)

// DispatcherConfig holds worker pool settings for event dispatch.
type DispatcherConfig struct {
	PoolSize        int
	QueueSize       int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// Dispatcher publishes ledger events off the request path. Events are already
// persisted in the ledger_events table when they reach the dispatcher, so
// broker delivery is best-effort with retry; a failed publish loses no audit
// data.
type Dispatcher struct {
	publisher Publisher
	pool      pond.Pool
	cfg       DispatcherConfig
}

// NewDispatcher creates a dispatcher over the given publisher.
func NewDispatcher(ctx context.Context, publisher Publisher, cfg DispatcherConfig) *Dispatcher {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 4
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1024
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	if cfg.MaxElapsed == 0 {
		cfg.MaxElapsed = 5 * time.Minute
	}

	pool := pond.NewPool(
		cfg.PoolSize,
		pond.WithQueueSize(cfg.QueueSize),
		pond.WithContext(ctx),
	)

	return &Dispatcher{publisher: publisher, pool: pool, cfg: cfg}
}

// Dispatch queues events for publication. Callers hand in request-scoped
// contexts; delivery must outlive them, so retries run on a detached context
// that keeps the caller's values but not its cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...*domain.LedgerEvent) {
	ctx = context.WithoutCancel(ctx)
	for _, event := range events {
		if event == nil {
			continue
		}
		ev := event
		d.pool.Submit(func() {
			d.publish(ctx, ev)
		})
	}
}

func (d *Dispatcher) publish(ctx context.Context, event *domain.LedgerEvent) {
	b := backoff.NewExponentialBackOff()
	if d.cfg.InitialInterval != 0 {
		b.InitialInterval = d.cfg.InitialInterval
	}
	b.MaxInterval = d.cfg.MaxInterval
	b.MaxElapsedTime = d.cfg.MaxElapsed

	operation := func() error {
		return d.publisher.PublishEvent(ctx, event)
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		logger.Error(err,
			zap.String("event_id", event.EventID),
			zap.String("event_type", string(event.EventType)),
		)
	}
}

// Stop drains the pool and closes the publisher.
func (d *Dispatcher) Stop() {
	d.pool.StopAndWait()
	d.publisher.Close()
}
