package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokencart/settlement/internal/domain"
)

// flakyPublisher fails the first failures attempts, then succeeds, recording
// the context state seen on each attempt.
type flakyPublisher struct {
	mu         sync.Mutex
	failures   int
	attempts   int
	lastCtxErr error
}

func (p *flakyPublisher) PublishEvent(ctx context.Context, event *domain.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempts++
	p.lastCtxErr = ctx.Err()
	if p.attempts <= p.failures {
		return errors.New("broker unavailable")
	}
	return nil
}

func (p *flakyPublisher) Close() {}

func (p *flakyPublisher) stats() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts, p.lastCtxErr
}

func TestDispatchRetriesUntilDelivered(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	d := NewDispatcher(context.Background(), pub, DispatcherConfig{
		PoolSize:        1,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsed:      time.Second,
	})

	d.Dispatch(context.Background(), &domain.LedgerEvent{
		EventID:   "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		EventType: domain.EventTypeTokenMinted,
	})
	d.Stop()

	attempts, lastCtxErr := pub.stats()
	assert.Equal(t, 3, attempts)
	require.NoError(t, lastCtxErr)
}

func TestDispatchOutlivesCallerContext(t *testing.T) {
	pub := &flakyPublisher{failures: 1}
	d := NewDispatcher(context.Background(), pub, DispatcherConfig{
		PoolSize:        1,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsed:      time.Second,
	})

	// The HTTP layer hands Dispatch the request context, which net/http
	// cancels as soon as the handler returns. Delivery must keep retrying
	// regardless.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Dispatch(ctx, &domain.LedgerEvent{
		EventID:   "01ARZ3NDEKTSV4RRFFQ69G5FAW",
		EventType: domain.EventTypeSettlement,
	})
	d.Stop()

	attempts, lastCtxErr := pub.stats()
	assert.Equal(t, 2, attempts)
	require.NoError(t, lastCtxErr)
}

func TestDispatchSkipsNilEvents(t *testing.T) {
	pub := &flakyPublisher{}
	d := NewDispatcher(context.Background(), pub, DispatcherConfig{PoolSize: 1})

	d.Dispatch(context.Background(), nil, &domain.LedgerEvent{
		EventID:   "01ARZ3NDEKTSV4RRFFQ69G5FAX",
		EventType: domain.EventTypeInvoicePaid,
	}, nil)
	d.Stop()

	attempts, _ := pub.stats()
	assert.Equal(t, 1, attempts)
}
