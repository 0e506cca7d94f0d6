// Package ledger holds the pieces shared by every registry: the single-writer
// authorization check and the persisted audit event helper.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/store"
	"github.com/tokencart/settlement/internal/store/schema"
)

// NewEventID returns a fresh ULID for a ledger event.
func NewEventID(now time.Time) string {
	return ulid.MustNewDefault(now).String()
}

// RequireWriter checks that caller holds the wired writer capability for the
// registry. Every mutating registry operation starts with this check.
func RequireWriter(ctx context.Context, st store.Store, registry domain.RegistryName, caller domain.Identity) error {
	writer, err := st.GetWiring(ctx, domain.WiringWriterKey(registry))
	if err != nil {
		return err
	}
	if !writer.Equal(caller) {
		return fmt.Errorf("registry %s: caller %s: %w", registry, caller, domain.ErrUnauthorized)
	}
	return nil
}

// RequireWiredIdentity checks that caller holds the named wiring capability
// (e.g. the token payment contract).
func RequireWiredIdentity(ctx context.Context, st store.Store, name string, caller domain.Identity) error {
	wired, err := st.GetWiring(ctx, name)
	if err != nil {
		return err
	}
	if !wired.Equal(caller) {
		return fmt.Errorf("%s: caller %s: %w", name, caller, domain.ErrUnauthorized)
	}
	return nil
}

// RecordEvent persists an audit event row in the current transaction scope.
func RecordEvent(ctx context.Context, st store.Store, event *domain.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	row := schema.LedgerEvent{
		EventID:        event.EventID,
		EventType:      string(event.EventType),
		CompanyAddress: event.Company.String(),
		SubjectAddress: event.Subject.String(),
		Amount:         event.Amount,
		Fee:            event.Fee,
		Reference:      event.Reference,
		Payload:        payload,
		CreatedAt:      event.Timestamp,
	}

	return st.AppendEvent(ctx, &row)
}
