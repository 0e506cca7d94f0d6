// Package company implements the company directory. Only the wired writer
// (the settlement orchestrator after bootstrap) may mutate it.
package company

import (
	"context"
	"fmt"
	"time"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger"
	"github.com/tokencart/settlement/internal/store"
	"github.com/tokencart/settlement/internal/store/schema"
)

// Registry is the company directory over a store.
type Registry struct {
	store store.Store
}

// NewRegistry creates a company registry bound to st.
func NewRegistry(st store.Store) *Registry {
	return &Registry{store: st}
}

// Register adds a company to the directory. The identity is immutable once
// registered; a duplicate registration fails with ErrAlreadyExists.
func (r *Registry) Register(ctx context.Context, caller, companyID domain.Identity, name string) (*domain.LedgerEvent, error) {
	if !companyID.Valid() {
		return nil, fmt.Errorf("company: %w", domain.ErrInvalidIdentity)
	}
	if name == "" {
		return nil, fmt.Errorf("company name is required: %w", domain.ErrInvalidState)
	}

	var event *domain.LedgerEvent
	err := r.store.Atomically(ctx, func(st store.Store) error {
		if err := ledger.RequireWriter(ctx, st, domain.RegistryCompany, caller); err != nil {
			return err
		}

		now := time.Now().UTC()
		record := schema.Company{
			Address:   companyID.String(),
			Name:      name,
			Active:    true,
			CreatedAt: now,
		}
		if err := st.CreateCompany(ctx, &record); err != nil {
			return err
		}

		event = &domain.LedgerEvent{
			EventID:   ledger.NewEventID(now),
			EventType: domain.EventTypeCompanyRegistered,
			Company:   companyID,
			Subject:   companyID,
			Timestamp: now,
		}
		return ledger.RecordEvent(ctx, st, event)
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

// SetActive toggles a company's active flag. Deactivation is the only removal
// semantic; the record itself is never deleted.
func (r *Registry) SetActive(ctx context.Context, caller, companyID domain.Identity, active bool) error {
	return r.store.Atomically(ctx, func(st store.Store) error {
		if err := ledger.RequireWriter(ctx, st, domain.RegistryCompany, caller); err != nil {
			return err
		}
		return st.SetCompanyActive(ctx, companyID, active)
	})
}

// Get retrieves a company record.
func (r *Registry) Get(ctx context.Context, companyID domain.Identity) (*schema.Company, error) {
	record, err := r.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("company %s: %w", companyID, domain.ErrNotFound)
	}
	return record, nil
}

// IsActive reports whether a company exists and is active.
func (r *Registry) IsActive(ctx context.Context, companyID domain.Identity) (bool, error) {
	record, err := r.store.GetCompany(ctx, companyID)
	if err != nil {
		return false, err
	}
	return record != nil && record.Active, nil
}

// All returns every company in registration order.
func (r *Registry) All(ctx context.Context) ([]schema.Company, error) {
	return r.store.ListCompanies(ctx)
}
