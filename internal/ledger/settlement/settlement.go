// Package settlement implements the orchestrator: the single wired writer of
// every registry and the one entry point for executing purchases.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger"
	"github.com/tokencart/settlement/internal/ledger/company"
	"github.com/tokencart/settlement/internal/ledger/customer"
	"github.com/tokencart/settlement/internal/ledger/invoice"
	"github.com/tokencart/settlement/internal/ledger/product"
	"github.com/tokencart/settlement/internal/ledger/token"
	"github.com/tokencart/settlement/internal/store"
)

// Config holds orchestrator parameters.
type Config struct {
	// Identity is the orchestrator's own identity, wired as the writer of
	// every registry during bootstrap
	Identity domain.Identity
	// Admin is the administrator identity allowed to register and
	// deactivate companies
	Admin domain.Identity
	// SettlementFeeRateBPS is an optional fee on purchase settlement,
	// skimmed from the company credit. The reference behavior is zero:
	// fees apply only at the token deposit/withdraw boundary.
	SettlementFeeRateBPS int64
}

// Orchestrator coordinates the registries. It holds references to them via
// the shared store and never duplicates their data.
type Orchestrator struct {
	store     store.Store
	cfg       Config
	token     *token.Ledger
	companies *company.Registry
	products  *product.Catalog
	customers *customer.Ledger
	invoices  *invoice.Ledger
}

// ReceiptLine is the per-company outcome of a settled purchase.
type ReceiptLine struct {
	Company       domain.Identity `json:"company"`
	InvoiceNumber uint64          `json:"invoice_number"`
	Subtotal      int64           `json:"subtotal"`
	Fee           int64           `json:"fee,omitempty"`
}

// Receipt is the definitive result of a successful purchase. There is no
// partial-success shape: a purchase either yields a receipt or an error.
type Receipt struct {
	Reference string          `json:"reference"`
	Buyer     domain.Identity `json:"buyer"`
	Lines     []ReceiptLine   `json:"lines"`
	Total     int64           `json:"total"`

	// Events are the audit events recorded during settlement, for
	// post-commit publication
	Events []*domain.LedgerEvent `json:"-"`
}

// New creates the orchestrator.
func New(st store.Store, tok *token.Ledger, cfg Config) *Orchestrator {
	return &Orchestrator{
		store:     st,
		cfg:       cfg,
		token:     tok,
		companies: company.NewRegistry(st),
		products:  product.NewCatalog(st),
		customers: customer.NewLedger(st),
		invoices:  invoice.NewLedger(st),
	}
}

// partition groups a purchase's items by company, preserving the first-seen
// order of companies.
type partition struct {
	company domain.Identity
	items   []domain.PurchaseItem
}

func partitionItems(items []domain.PurchaseItem) []*partition {
	var ordered []*partition
	index := make(map[domain.Identity]*partition)
	for _, item := range items {
		p, ok := index[item.Company]
		if !ok {
			p = &partition{company: item.Company}
			index[item.Company] = p
			ordered = append(ordered, p)
		}
		p.items = append(p.items, item)
	}
	return ordered
}

// ExecutePurchase settles a multi-item, potentially multi-company purchase as
// one all-or-nothing transition. Every partition is validated before any state
// changes; any failure unwinds the entire call, so partial settlement across
// companies is never observable.
func (o *Orchestrator) ExecutePurchase(ctx context.Context, buyer domain.Identity, items []domain.PurchaseItem) (*Receipt, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyPurchase
	}
	if !buyer.Valid() {
		return nil, fmt.Errorf("buyer: %w", domain.ErrInvalidIdentity)
	}

	partitions := partitionItems(items)
	receipt := &Receipt{
		Reference: uuid.NewString(),
		Buyer:     buyer,
	}

	err := o.store.Atomically(ctx, func(st store.Store) error {
		// Validation phase: compute and check every partition against the
		// staged state before mutating anything.
		subtotals := make([]int64, len(partitions))
		var required int64
		for i, p := range partitions {
			subtotal, err := o.validatePartition(ctx, st, p)
			if err != nil {
				return err
			}
			subtotals[i] = subtotal

			required, err = domain.CheckedAdd(required, subtotal)
			if err != nil {
				return err
			}
		}

		balance, err := st.GetBalance(ctx, buyer)
		if err != nil {
			return err
		}
		if balance < required {
			return fmt.Errorf("balance %d < %d: %w", balance, required, domain.ErrInsufficientBalance)
		}

		// Apply phase: the per-partition balance checks cannot fail anymore;
		// the enclosing transaction still discards everything on error.
		for i, p := range partitions {
			if err := o.applyPartition(ctx, st, buyer, p.company, subtotals[i], receipt); err != nil {
				return err
			}
		}

		receipt.Total = required
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// validatePartition checks one company partition and returns its subtotal.
func (o *Orchestrator) validatePartition(ctx context.Context, st store.Store, p *partition) (int64, error) {
	companyRecord, err := st.GetCompany(ctx, p.company)
	if err != nil {
		return 0, err
	}
	if companyRecord == nil {
		return 0, fmt.Errorf("company %s: %w", p.company, domain.ErrNotFound)
	}
	if !companyRecord.Active {
		return 0, fmt.Errorf("company %s is inactive: %w", p.company, domain.ErrInvalidState)
	}

	var subtotal int64
	for _, item := range p.items {
		if item.Quantity <= 0 {
			return 0, fmt.Errorf("quantity %d for product %d: %w", item.Quantity, item.ProductID, domain.ErrInvalidAmount)
		}

		productRecord, err := st.GetProduct(ctx, p.company, item.ProductID)
		if err != nil {
			return 0, err
		}
		if productRecord == nil {
			return 0, fmt.Errorf("product %s/%d: %w", p.company, item.ProductID, domain.ErrNotFound)
		}
		if !productRecord.Active {
			return 0, fmt.Errorf("product %s/%d is inactive: %w", p.company, item.ProductID, domain.ErrInvalidState)
		}
		// Exact match guards against stale client-side pricing.
		if productRecord.Price != item.UnitPrice {
			return 0, fmt.Errorf("product %s/%d price %d != submitted %d: %w",
				p.company, item.ProductID, productRecord.Price, item.UnitPrice, domain.ErrInvalidState)
		}

		lineTotal, err := domain.CheckedMul(item.UnitPrice, item.Quantity)
		if err != nil {
			return 0, err
		}
		subtotal, err = domain.CheckedAdd(subtotal, lineTotal)
		if err != nil {
			return 0, err
		}
	}

	return subtotal, nil
}

// applyPartition settles one company partition: balance moves, customer
// ledger upsert, invoice issue and settlement event.
func (o *Orchestrator) applyPartition(ctx context.Context, st store.Store, buyer, companyID domain.Identity, subtotal int64, receipt *Receipt) error {
	fee, err := domain.Fee(subtotal, o.cfg.SettlementFeeRateBPS)
	if err != nil {
		return err
	}

	if err := token.Debit(ctx, st, buyer, subtotal); err != nil {
		return err
	}
	if err := token.Credit(ctx, st, companyID, subtotal-fee); err != nil {
		return err
	}
	if fee > 0 {
		collector, err := st.GetWiring(ctx, domain.WiringTokenFeeCollector)
		if err != nil {
			return err
		}
		if err := token.Credit(ctx, st, collector, fee); err != nil {
			return err
		}
	}

	if err := customer.Apply(ctx, st, companyID, buyer, subtotal); err != nil {
		return err
	}

	number, createdEvent, err := invoice.Issue(ctx, st, companyID, buyer, subtotal, receipt.Reference)
	if err != nil {
		return err
	}
	// The settlement is the payment: the invoice is marked paid in the same
	// transaction that issued it.
	if err := st.UpdateInvoicePaid(ctx, companyID, number); err != nil {
		return err
	}

	now := time.Now().UTC()
	settled := &domain.LedgerEvent{
		EventID:   ledger.NewEventID(now),
		EventType: domain.EventTypeSettlement,
		Company:   companyID,
		Subject:   buyer,
		Amount:    subtotal,
		Fee:       fee,
		Sequence:  number,
		Reference: receipt.Reference,
		Timestamp: now,
	}
	if err := ledger.RecordEvent(ctx, st, settled); err != nil {
		return err
	}

	receipt.Lines = append(receipt.Lines, ReceiptLine{
		Company:       companyID,
		InvoiceNumber: number,
		Subtotal:      subtotal,
		Fee:           fee,
	})
	receipt.Events = append(receipt.Events, createdEvent, settled)
	return nil
}
