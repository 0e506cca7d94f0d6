package messaging

import (
	"context"

	"github.com/tokencart/settlement/internal/domain"
)

// Publisher defines the interface for publishing ledger events to the
// message broker
type Publisher interface {
	// PublishEvent publishes a ledger event
	PublishEvent(ctx context.Context, event *domain.LedgerEvent) error
	// Close closes the connection
	Close()
}

// NoopPublisher discards events. Used when no broker is configured and in
// tests.
type NoopPublisher struct{}

// PublishEvent discards the event
func (NoopPublisher) PublishEvent(ctx context.Context, event *domain.LedgerEvent) error {
	return nil
}

// Close is a no-op
func (NoopPublisher) Close() {}
