package store

import (
	"context"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/store/schema"
)

// Store defines the interface for ledger state operations. All lookups return
// (nil, nil) when the record does not exist; the ledger layer maps absence to
// domain errors.
//
// Atomically runs fn against a transaction-scoped Store: either every write fn
// performs is persisted, or none is. The Postgres implementation maps this to
// a database transaction; the memory implementation stages writes on a copy of
// the state and swaps it in on success.
type Store interface {
	// Atomically executes fn within a single all-or-nothing transaction
	Atomically(ctx context.Context, fn func(Store) error) error

	// SetWiring records a set-once capability assignment; a second call for
	// the same name fails with domain.ErrAlreadyWired
	SetWiring(ctx context.Context, name string, identity domain.Identity) error
	// GetWiring retrieves a capability assignment; missing entries fail with
	// domain.ErrNotWired
	GetWiring(ctx context.Context, name string) (domain.Identity, error)

	// GetBalance retrieves an account balance, zero for unknown accounts
	GetBalance(ctx context.Context, address domain.Identity) (int64, error)
	// AddBalance applies a relative balance change, creating the account on
	// first credit. A debit that would take the balance below zero fails with
	// domain.ErrInsufficientBalance and changes nothing; the check and the
	// update are a single operation, so concurrent transactions cannot lose
	// each other's changes.
	AddBalance(ctx context.Context, address domain.Identity, delta int64) error
	// GetAllowance retrieves the remaining approved amount, zero when absent
	GetAllowance(ctx context.Context, owner, spender domain.Identity) (int64, error)
	// SetAllowance upserts the approved amount for (owner, spender)
	SetAllowance(ctx context.Context, owner, spender domain.Identity, amount int64) error
	// GetTokenStats retrieves the cumulative minted and burned totals
	GetTokenStats(ctx context.Context) (minted, burned int64, err error)
	// AddTokenStats adds deltas to the cumulative minted and burned totals
	AddTokenStats(ctx context.Context, mintedDelta, burnedDelta int64) error

	// CreateCompany inserts a company record; duplicate identities fail with
	// domain.ErrAlreadyExists
	CreateCompany(ctx context.Context, company *schema.Company) error
	// GetCompany retrieves a company by identity
	GetCompany(ctx context.Context, address domain.Identity) (*schema.Company, error)
	// ListCompanies retrieves all companies in registration order
	ListCompanies(ctx context.Context) ([]schema.Company, error)
	// SetCompanyActive flips a company's active flag
	SetCompanyActive(ctx context.Context, address domain.Identity, active bool) error

	// CreateProduct inserts a product, assigning the next sequential id for
	// its company, and returns the assigned id
	CreateProduct(ctx context.Context, product *schema.Product) (uint64, error)
	// GetProduct retrieves a product by (company, id)
	GetProduct(ctx context.Context, company domain.Identity, productID uint64) (*schema.Product, error)
	// ListProducts retrieves a company's products in creation order
	ListProducts(ctx context.Context, company domain.Identity) ([]schema.Product, error)
	// SetProductActive flips a product's active flag
	SetProductActive(ctx context.Context, company domain.Identity, productID uint64, active bool) error

	// GetCustomer retrieves the (company, customer) purchase record
	GetCustomer(ctx context.Context, company, customer domain.Identity) (*schema.CustomerAccount, error)
	// SaveCustomer upserts the (company, customer) purchase record
	SaveCustomer(ctx context.Context, customer *schema.CustomerAccount) error

	// CreateInvoice inserts an invoice, assigning the next sequential number
	// for its company, and returns the assigned number
	CreateInvoice(ctx context.Context, invoice *schema.Invoice) (uint64, error)
	// GetInvoice retrieves an invoice by (company, number)
	GetInvoice(ctx context.Context, company domain.Identity, number uint64) (*schema.Invoice, error)
	// ListInvoicesByCompany retrieves a company's invoices in creation order
	ListInvoicesByCompany(ctx context.Context, company domain.Identity) ([]schema.Invoice, error)
	// ListInvoicesByCustomer retrieves the invoices issued to a customer by a
	// company, in creation order
	ListInvoicesByCustomer(ctx context.Context, company, customer domain.Identity) ([]schema.Invoice, error)
	// UpdateInvoicePaid marks an invoice paid exactly once; unknown invoices
	// fail with domain.ErrNotFound, already-paid invoices with
	// domain.ErrInvalidState
	UpdateInvoicePaid(ctx context.Context, company domain.Identity, number uint64) error

	// AppendEvent persists a ledger event row
	AppendEvent(ctx context.Context, event *schema.LedgerEvent) error
}
