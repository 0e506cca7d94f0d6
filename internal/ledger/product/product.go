// Package product implements the per-company product catalog. Products are
// append-only with sequential per-company ids; deactivation is the only
// removal semantic.
package product

import (
	"context"
	"fmt"
	"time"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger"
	"github.com/tokencart/settlement/internal/store"
	"github.com/tokencart/settlement/internal/store/schema"
)

// Catalog is the product catalog over a store.
type Catalog struct {
	store store.Store
}

// NewCatalog creates a product catalog bound to st.
func NewCatalog(st store.Store) *Catalog {
	return &Catalog{store: st}
}

// Create adds a product for an active company and returns its assigned id.
// Ids start at 1 and increase by 1 within each company, independent of other
// companies' sequences. The content reference is stored opaquely.
func (c *Catalog) Create(ctx context.Context, caller, companyID domain.Identity, name string, price int64, contentRef string) (uint64, *domain.LedgerEvent, error) {
	if name == "" {
		return 0, nil, fmt.Errorf("product name is required: %w", domain.ErrInvalidState)
	}
	if price < 0 {
		return 0, nil, fmt.Errorf("product price %d: %w", price, domain.ErrInvalidAmount)
	}

	var (
		productID uint64
		event     *domain.LedgerEvent
	)
	err := c.store.Atomically(ctx, func(st store.Store) error {
		if err := ledger.RequireWriter(ctx, st, domain.RegistryProduct, caller); err != nil {
			return err
		}

		companyRecord, err := st.GetCompany(ctx, companyID)
		if err != nil {
			return err
		}
		if companyRecord == nil {
			return fmt.Errorf("company %s: %w", companyID, domain.ErrNotFound)
		}
		if !companyRecord.Active {
			return fmt.Errorf("company %s is inactive: %w", companyID, domain.ErrInvalidState)
		}

		now := time.Now().UTC()
		record := schema.Product{
			CompanyAddress: companyID.String(),
			Name:           name,
			Price:          price,
			ContentRef:     contentRef,
			Active:         true,
			CreatedAt:      now,
		}
		productID, err = st.CreateProduct(ctx, &record)
		if err != nil {
			return err
		}

		event = &domain.LedgerEvent{
			EventID:   ledger.NewEventID(now),
			EventType: domain.EventTypeProductCreated,
			Company:   companyID,
			Subject:   companyID,
			Amount:    price,
			Sequence:  productID,
			Timestamp: now,
		}
		return ledger.RecordEvent(ctx, st, event)
	})
	if err != nil {
		return 0, nil, err
	}

	return productID, event, nil
}

// SetActive toggles a product's active flag.
func (c *Catalog) SetActive(ctx context.Context, caller, companyID domain.Identity, productID uint64, active bool) error {
	return c.store.Atomically(ctx, func(st store.Store) error {
		if err := ledger.RequireWriter(ctx, st, domain.RegistryProduct, caller); err != nil {
			return err
		}
		return st.SetProductActive(ctx, companyID, productID, active)
	})
}

// Get retrieves a product record.
func (c *Catalog) Get(ctx context.Context, companyID domain.Identity, productID uint64) (*schema.Product, error) {
	record, err := c.store.GetProduct(ctx, companyID, productID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("product %s/%d: %w", companyID, productID, domain.ErrNotFound)
	}
	return record, nil
}

// ListByCompany returns a company's products in creation order.
func (c *Catalog) ListByCompany(ctx context.Context, companyID domain.Identity) ([]schema.Product, error) {
	return c.store.ListProducts(ctx, companyID)
}

// IsActive reports whether a product exists and is active.
func (c *Catalog) IsActive(ctx context.Context, companyID domain.Identity, productID uint64) (bool, error) {
	record, err := c.store.GetProduct(ctx, companyID, productID)
	if err != nil {
		return false, err
	}
	return record != nil && record.Active, nil
}
