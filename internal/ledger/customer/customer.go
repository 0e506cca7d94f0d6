// Package customer implements the per-(company, customer) purchase ledger.
// The first recorded purchase registers the pair implicitly.
package customer

import (
	"context"
	"fmt"
	"time"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger"
	"github.com/tokencart/settlement/internal/store"
	"github.com/tokencart/settlement/internal/store/schema"
)

// Ledger is the customer purchase ledger over a store.
type Ledger struct {
	store store.Store
}

// NewLedger creates a customer ledger bound to st.
func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// RecordPurchase adds amount to the running total for (company, customer),
// creating the record on first use. A zero amount is a registration-only
// no-op on the total. The cumulative total only grows.
func (l *Ledger) RecordPurchase(ctx context.Context, caller, companyID, customerID domain.Identity, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("purchase amount %d: %w", amount, domain.ErrInvalidAmount)
	}

	return l.store.Atomically(ctx, func(st store.Store) error {
		if err := ledger.RequireWriter(ctx, st, domain.RegistryCustomer, caller); err != nil {
			return err
		}
		return Apply(ctx, st, companyID, customerID, amount)
	})
}

// Register creates the (company, customer) record without recording any
// purchase volume.
func (l *Ledger) Register(ctx context.Context, caller, companyID, customerID domain.Identity) error {
	return l.RecordPurchase(ctx, caller, companyID, customerID, 0)
}

// Get retrieves the purchase record for (company, customer).
func (l *Ledger) Get(ctx context.Context, companyID, customerID domain.Identity) (*schema.CustomerAccount, error) {
	record, err := l.store.GetCustomer(ctx, companyID, customerID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("customer %s/%s: %w", companyID, customerID, domain.ErrNotFound)
	}
	return record, nil
}

// TotalFor returns the cumulative purchase total, zero for unknown pairs.
func (l *Ledger) TotalFor(ctx context.Context, companyID, customerID domain.Identity) (int64, error) {
	record, err := l.store.GetCustomer(ctx, companyID, customerID)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, nil
	}
	return record.TotalPurchases, nil
}

// Apply performs the create-or-add upsert within the given store scope. The
// settlement orchestrator uses it inside its own transaction.
func Apply(ctx context.Context, st store.Store, companyID, customerID domain.Identity, amount int64) error {
	if !customerID.Valid() {
		return fmt.Errorf("customer: %w", domain.ErrInvalidIdentity)
	}

	record, err := st.GetCustomer(ctx, companyID, customerID)
	if err != nil {
		return err
	}

	if record == nil {
		record = &schema.CustomerAccount{
			CompanyAddress:  companyID.String(),
			CustomerAddress: customerID.String(),
			TotalPurchases:  amount,
			Active:          true,
			RegisteredAt:    time.Now().UTC(),
		}
		return st.SaveCustomer(ctx, record)
	}

	updated, err := domain.CheckedAdd(record.TotalPurchases, amount)
	if err != nil {
		return err
	}
	record.TotalPurchases = updated
	return st.SaveCustomer(ctx, record)
}
