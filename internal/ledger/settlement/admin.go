package settlement

import (
	"context"
	"fmt"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/store/schema"
)

// Registry mutations flow through the orchestrator because it is the sole
// wired writer. The orchestrator performs its own caller checks (admin for
// company directory changes, the company itself for catalog and invoice
// changes) and then invokes the registries with its writer identity.

func (o *Orchestrator) requireAdmin(caller domain.Identity) error {
	if !o.cfg.Admin.Equal(caller) {
		return fmt.Errorf("caller %s is not the administrator: %w", caller, domain.ErrUnauthorized)
	}
	return nil
}

func requireSelf(caller, companyID domain.Identity) error {
	if !caller.Equal(companyID) {
		return fmt.Errorf("caller %s may not act for company %s: %w", caller, companyID, domain.ErrUnauthorized)
	}
	return nil
}

// RegisterCompany adds a company to the directory.
func (o *Orchestrator) RegisterCompany(ctx context.Context, caller, companyID domain.Identity, name string) (*domain.LedgerEvent, error) {
	if err := o.requireAdmin(caller); err != nil {
		return nil, err
	}
	return o.companies.Register(ctx, o.cfg.Identity, companyID, name)
}

// SetCompanyActive toggles a company's active flag.
func (o *Orchestrator) SetCompanyActive(ctx context.Context, caller, companyID domain.Identity, active bool) error {
	if err := o.requireAdmin(caller); err != nil {
		return err
	}
	return o.companies.SetActive(ctx, o.cfg.Identity, companyID, active)
}

// CreateProduct adds a product to the caller's own catalog.
func (o *Orchestrator) CreateProduct(ctx context.Context, caller, companyID domain.Identity, name string, price int64, contentRef string) (uint64, *domain.LedgerEvent, error) {
	if err := requireSelf(caller, companyID); err != nil {
		return 0, nil, err
	}
	return o.products.Create(ctx, o.cfg.Identity, companyID, name, price, contentRef)
}

// SetProductActive toggles a product's active flag in the caller's catalog.
func (o *Orchestrator) SetProductActive(ctx context.Context, caller, companyID domain.Identity, productID uint64, active bool) error {
	if err := requireSelf(caller, companyID); err != nil {
		return err
	}
	return o.products.SetActive(ctx, o.cfg.Identity, companyID, productID, active)
}

// MarkInvoicePaid flips one of the caller's invoices to paid. Settled
// invoices are already paid; this covers invoices issued out of band.
func (o *Orchestrator) MarkInvoicePaid(ctx context.Context, caller, companyID domain.Identity, number uint64) (*domain.LedgerEvent, error) {
	if err := requireSelf(caller, companyID); err != nil {
		return nil, err
	}
	return o.invoices.MarkPaid(ctx, o.cfg.Identity, companyID, number)
}

// RegisterCustomer explicitly registers a (company, customer) pair.
func (o *Orchestrator) RegisterCustomer(ctx context.Context, caller, companyID, customerID domain.Identity) error {
	if err := requireSelf(caller, companyID); err != nil {
		return err
	}
	return o.customers.Register(ctx, o.cfg.Identity, companyID, customerID)
}

// Read-only aggregation helpers. These proxy to the owned registries and
// perform no mutation.

// BalanceOf returns a participant's token balance.
func (o *Orchestrator) BalanceOf(ctx context.Context, account domain.Identity) (int64, error) {
	return o.token.BalanceOf(ctx, account)
}

// CompanyInfo returns a company record.
func (o *Orchestrator) CompanyInfo(ctx context.Context, companyID domain.Identity) (*schema.Company, error) {
	return o.companies.Get(ctx, companyID)
}

// Companies returns all companies in registration order.
func (o *Orchestrator) Companies(ctx context.Context) ([]schema.Company, error) {
	return o.companies.All(ctx)
}

// ProductInfo returns a product record.
func (o *Orchestrator) ProductInfo(ctx context.Context, companyID domain.Identity, productID uint64) (*schema.Product, error) {
	return o.products.Get(ctx, companyID, productID)
}

// Products returns a company's catalog in creation order.
func (o *Orchestrator) Products(ctx context.Context, companyID domain.Identity) ([]schema.Product, error) {
	return o.products.ListByCompany(ctx, companyID)
}

// InvoiceInfo returns an invoice record.
func (o *Orchestrator) InvoiceInfo(ctx context.Context, companyID domain.Identity, number uint64) (*schema.Invoice, error) {
	return o.invoices.Get(ctx, companyID, number)
}

// Invoices returns a company's invoices in creation order.
func (o *Orchestrator) Invoices(ctx context.Context, companyID domain.Identity) ([]schema.Invoice, error) {
	return o.invoices.ListByCompany(ctx, companyID)
}

// PurchaseHistory returns the invoices a company issued to one customer.
func (o *Orchestrator) PurchaseHistory(ctx context.Context, companyID, customerID domain.Identity) ([]schema.Invoice, error) {
	return o.invoices.ListByCustomer(ctx, companyID, customerID)
}

// TotalPurchases returns the cumulative settled amount for (company, customer).
func (o *Orchestrator) TotalPurchases(ctx context.Context, companyID, customerID domain.Identity) (int64, error) {
	return o.customers.TotalFor(ctx, companyID, customerID)
}

// CustomerInfo returns the (company, customer) purchase record.
func (o *Orchestrator) CustomerInfo(ctx context.Context, companyID, customerID domain.Identity) (*schema.CustomerAccount, error) {
	return o.customers.Get(ctx, companyID, customerID)
}
