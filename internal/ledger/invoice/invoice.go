// Package invoice implements the per-company invoice sequence. Numbers start
// at 1, strictly increase, and are never reused; the paid flag flips exactly
// once.
package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger"
	"github.com/tokencart/settlement/internal/store"
	"github.com/tokencart/settlement/internal/store/schema"
)

// Ledger is the invoice sequence over a store.
type Ledger struct {
	store store.Store
}

// NewLedger creates an invoice ledger bound to st.
func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// Create allocates the next invoice number for the company and stores the
// invoice unpaid. Returns the allocated number.
func (l *Ledger) Create(ctx context.Context, caller, companyID, customerID domain.Identity, total int64) (uint64, error) {
	var number uint64
	err := l.store.Atomically(ctx, func(st store.Store) error {
		if err := ledger.RequireWriter(ctx, st, domain.RegistryInvoice, caller); err != nil {
			return err
		}
		var err error
		number, _, err = Issue(ctx, st, companyID, customerID, total, "")
		return err
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}

// MarkPaid flips an invoice to paid. Unknown invoices fail with ErrNotFound;
// a second call on the same invoice fails with ErrInvalidState and changes
// nothing.
func (l *Ledger) MarkPaid(ctx context.Context, caller, companyID domain.Identity, number uint64) (*domain.LedgerEvent, error) {
	var event *domain.LedgerEvent
	err := l.store.Atomically(ctx, func(st store.Store) error {
		if err := ledger.RequireWriter(ctx, st, domain.RegistryInvoice, caller); err != nil {
			return err
		}

		record, err := st.GetInvoice(ctx, companyID, number)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("invoice %s/%d: %w", companyID, number, domain.ErrNotFound)
		}
		if record.Paid {
			return fmt.Errorf("invoice %s/%d already paid: %w", companyID, number, domain.ErrInvalidState)
		}

		if err := st.UpdateInvoicePaid(ctx, companyID, number); err != nil {
			return err
		}

		now := time.Now().UTC()
		event = &domain.LedgerEvent{
			EventID:   ledger.NewEventID(now),
			EventType: domain.EventTypeInvoicePaid,
			Company:   companyID,
			Subject:   domain.Identity(record.CustomerAddress),
			Amount:    record.TotalAmount,
			Sequence:  number,
			Timestamp: now,
		}
		return ledger.RecordEvent(ctx, st, event)
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

// Get retrieves an invoice record.
func (l *Ledger) Get(ctx context.Context, companyID domain.Identity, number uint64) (*schema.Invoice, error) {
	record, err := l.store.GetInvoice(ctx, companyID, number)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("invoice %s/%d: %w", companyID, number, domain.ErrNotFound)
	}
	return record, nil
}

// ListByCompany returns a company's invoices in creation order.
func (l *Ledger) ListByCompany(ctx context.Context, companyID domain.Identity) ([]schema.Invoice, error) {
	return l.store.ListInvoicesByCompany(ctx, companyID)
}

// ListByCustomer returns the invoices a company issued to one customer, in
// creation order.
func (l *Ledger) ListByCustomer(ctx context.Context, companyID, customerID domain.Identity) ([]schema.Invoice, error) {
	return l.store.ListInvoicesByCustomer(ctx, companyID, customerID)
}

// Issue allocates and stores an invoice within the given store scope,
// recording the invoice.created event. The settlement orchestrator uses it
// inside its own transaction; reference groups the events of one settlement.
func Issue(ctx context.Context, st store.Store, companyID, customerID domain.Identity, total int64, reference string) (uint64, *domain.LedgerEvent, error) {
	if total < 0 {
		return 0, nil, fmt.Errorf("invoice total %d: %w", total, domain.ErrInvalidAmount)
	}
	if !customerID.Valid() {
		return 0, nil, fmt.Errorf("customer: %w", domain.ErrInvalidIdentity)
	}

	now := time.Now().UTC()
	record := schema.Invoice{
		CompanyAddress:  companyID.String(),
		CustomerAddress: customerID.String(),
		TotalAmount:     total,
		Paid:            false,
		IssuedAt:        now,
	}
	number, err := st.CreateInvoice(ctx, &record)
	if err != nil {
		return 0, nil, err
	}

	event := &domain.LedgerEvent{
		EventID:   ledger.NewEventID(now),
		EventType: domain.EventTypeInvoiceCreated,
		Company:   companyID,
		Subject:   customerID,
		Amount:    total,
		Sequence:  number,
		Reference: reference,
		Timestamp: now,
	}
	if err := ledger.RecordEvent(ctx, st, event); err != nil {
		return 0, nil, err
	}

	return number, event, nil
}
