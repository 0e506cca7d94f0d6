package settlement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/ledger/token"
	"github.com/tokencart/settlement/internal/store"
	"github.com/tokencart/settlement/internal/store/schema"
)

var (
	orchestratorID  = domain.MustIdentity("0x5555555555555555555555555555555555555555")
	admin           = domain.MustIdentity("0x6666666666666666666666666666666666666666")
	paymentContract = domain.MustIdentity("0xAAAA00000000000000000000000000000000AAAA")
	feeCollector    = domain.MustIdentity("0xBBBB00000000000000000000000000000000BBBB")
	acme            = domain.MustIdentity("0x1111111111111111111111111111111111111111")
	globex          = domain.MustIdentity("0x2222222222222222222222222222222222222222")
	alice           = domain.MustIdentity("0x3333333333333333333333333333333333333333")
	stranger        = domain.MustIdentity("0x9999999999999999999999999999999999999999")
)

// newTestOrchestrator performs the full bootstrap handoff: the orchestrator
// becomes the writer of every registry, and the token wirings are pinned.
func newTestOrchestrator(t *testing.T, cfg Config) (*Orchestrator, *token.Ledger, store.Store) {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemoryStore()
	for _, registry := range []domain.RegistryName{
		domain.RegistryCompany,
		domain.RegistryProduct,
		domain.RegistryCustomer,
		domain.RegistryInvoice,
	} {
		require.NoError(t, st.SetWiring(ctx, domain.WiringWriterKey(registry), orchestratorID))
	}
	require.NoError(t, st.SetWiring(ctx, domain.WiringTokenPaymentContract, paymentContract))
	require.NoError(t, st.SetWiring(ctx, domain.WiringTokenFeeCollector, feeCollector))

	if cfg.Identity == "" {
		cfg.Identity = orchestratorID
	}
	if cfg.Admin == "" {
		cfg.Admin = admin
	}

	tok := token.NewLedger(st, token.Config{})
	return New(st, tok, cfg), tok, st
}

// seedCompanyWithProduct registers a company and one product through the
// orchestrator's admin surface.
func seedCompanyWithProduct(t *testing.T, o *Orchestrator, companyID domain.Identity, name string, price int64) uint64 {
	t.Helper()
	ctx := context.Background()

	_, err := o.RegisterCompany(ctx, admin, companyID, name)
	require.NoError(t, err)

	productID, _, err := o.CreateProduct(ctx, companyID, companyID, name+" product", price, "")
	require.NoError(t, err)
	return productID
}

// fund credits an account directly in the store, bypassing the deposit fee so
// tests start from an exact balance.
func fund(t *testing.T, st store.Store, account domain.Identity, balance int64) {
	t.Helper()
	require.NoError(t, st.AddBalance(context.Background(), account, balance))
}

func TestExecutePurchaseMultiCompany(t *testing.T) {
	ctx := context.Background()
	o, _, st := newTestOrchestrator(t, Config{})

	productA := seedCompanyWithProduct(t, o, acme, "Acme", 20)
	productB := seedCompanyWithProduct(t, o, globex, "Globex", 50)
	fund(t, st, alice, 100)

	receipt, err := o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: productA, Quantity: 1, UnitPrice: 20},
		{Company: globex, ProductID: productB, Quantity: 1, UnitPrice: 50},
	})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.NotEmpty(t, receipt.Reference)
	assert.Equal(t, int64(70), receipt.Total)
	require.Len(t, receipt.Lines, 2)

	// Lines follow the first-seen company order of the submitted items
	assert.Equal(t, acme, receipt.Lines[0].Company)
	assert.Equal(t, int64(20), receipt.Lines[0].Subtotal)
	assert.Equal(t, globex, receipt.Lines[1].Company)
	assert.Equal(t, int64(50), receipt.Lines[1].Subtotal)

	// First invoice for each company is number 1
	assert.Equal(t, uint64(1), receipt.Lines[0].InvoiceNumber)
	assert.Equal(t, uint64(1), receipt.Lines[1].InvoiceNumber)

	// Balances moved in full; no settlement fee by default
	balance, err := o.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)

	balance, err = o.BalanceOf(ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance)

	balance, err = o.BalanceOf(ctx, globex)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	// Invoices were issued and paid in the same transaction
	invoice, err := o.InvoiceInfo(ctx, acme, 1)
	require.NoError(t, err)
	assert.True(t, invoice.Paid)
	assert.Equal(t, int64(20), invoice.TotalAmount)
	assert.Equal(t, alice.String(), invoice.CustomerAddress)

	// Purchase totals accumulated per company
	total, err := o.TotalPurchases(ctx, acme, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)

	total, err = o.TotalPurchases(ctx, globex, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)

	// invoice.created + settlement.executed per company partition
	require.Len(t, receipt.Events, 4)
	for _, event := range receipt.Events {
		assert.Equal(t, receipt.Reference, event.Reference)
	}
}

func TestExecutePurchaseAggregatesItemsPerCompany(t *testing.T) {
	ctx := context.Background()
	o, _, st := newTestOrchestrator(t, Config{})

	productID := seedCompanyWithProduct(t, o, acme, "Acme", 10)
	secondID, _, err := o.CreateProduct(ctx, acme, acme, "Gadget", 25, "")
	require.NoError(t, err)
	fund(t, st, alice, 1000)

	// Two items, same company: one partition, one invoice
	receipt, err := o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: productID, Quantity: 3, UnitPrice: 10},
		{Company: acme, ProductID: secondID, Quantity: 2, UnitPrice: 25},
	})
	require.NoError(t, err)
	require.Len(t, receipt.Lines, 1)
	assert.Equal(t, int64(80), receipt.Lines[0].Subtotal)
	assert.Equal(t, uint64(1), receipt.Lines[0].InvoiceNumber)

	invoices, err := o.Invoices(ctx, acme)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestExecutePurchaseAtomicOnPriceMismatch(t *testing.T) {
	ctx := context.Background()
	o, _, st := newTestOrchestrator(t, Config{})

	productA := seedCompanyWithProduct(t, o, acme, "Acme", 20)
	productB := seedCompanyWithProduct(t, o, globex, "Globex", 50)
	fund(t, st, alice, 100)

	// The second partition's stale price fails the whole purchase
	_, err := o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: productA, Quantity: 1, UnitPrice: 20},
		{Company: globex, ProductID: productB, Quantity: 1, UnitPrice: 45},
	})
	require.ErrorIs(t, err, domain.ErrInvalidState)

	// Nothing settled: balances, invoices and customer totals are untouched
	balance, err := o.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = o.BalanceOf(ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	invoices, err := o.Invoices(ctx, acme)
	require.NoError(t, err)
	assert.Empty(t, invoices)

	total, err := o.TotalPurchases(ctx, acme, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	// No invoice number was consumed by the failed attempt
	fund(t, st, alice, 100)
	receipt, err := o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: productA, Quantity: 1, UnitPrice: 20},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Lines[0].InvoiceNumber)
}

func TestExecutePurchaseInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	o, _, st := newTestOrchestrator(t, Config{})

	productA := seedCompanyWithProduct(t, o, acme, "Acme", 20)
	productB := seedCompanyWithProduct(t, o, globex, "Globex", 50)
	fund(t, st, alice, 69)

	// The aggregate total is checked before any partition settles
	_, err := o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: productA, Quantity: 1, UnitPrice: 20},
		{Company: globex, ProductID: productB, Quantity: 1, UnitPrice: 50},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	balance, err := o.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(69), balance)

	balance, err = o.BalanceOf(ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestExecutePurchaseValidation(t *testing.T) {
	ctx := context.Background()
	o, _, st := newTestOrchestrator(t, Config{})

	productID := seedCompanyWithProduct(t, o, acme, "Acme", 20)
	fund(t, st, alice, 1000)

	// Empty purchases are rejected outright
	_, err := o.ExecutePurchase(ctx, alice, nil)
	require.ErrorIs(t, err, domain.ErrEmptyPurchase)

	// Unknown company
	_, err = o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: stranger, ProductID: 1, Quantity: 1, UnitPrice: 20},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Unknown product
	_, err = o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: 99, Quantity: 1, UnitPrice: 20},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Non-positive quantity
	_, err = o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: productID, Quantity: 0, UnitPrice: 20},
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	// Inactive company
	require.NoError(t, o.SetCompanyActive(ctx, admin, acme, false))
	_, err = o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: productID, Quantity: 1, UnitPrice: 20},
	})
	require.ErrorIs(t, err, domain.ErrInvalidState)

	// Inactive product
	require.NoError(t, o.SetCompanyActive(ctx, admin, acme, true))
	require.NoError(t, o.SetProductActive(ctx, acme, acme, productID, false))
	_, err = o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: productID, Quantity: 1, UnitPrice: 20},
	})
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestExecutePurchaseOverflow(t *testing.T) {
	ctx := context.Background()
	o, _, st := newTestOrchestrator(t, Config{})

	const hugePrice = int64(1) << 62
	seedCompanyWithProduct(t, o, acme, "Acme", hugePrice)
	fund(t, st, alice, 1000)

	_, err := o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: 1, Quantity: 4, UnitPrice: hugePrice},
	})
	require.ErrorIs(t, err, domain.ErrOverflow)
}

func TestExecutePurchaseSettlementFee(t *testing.T) {
	ctx := context.Background()
	// 1% settlement fee skimmed from the company credit
	o, _, st := newTestOrchestrator(t, Config{SettlementFeeRateBPS: 100})

	productID := seedCompanyWithProduct(t, o, acme, "Acme", 1000)
	fund(t, st, alice, 1000)

	receipt, err := o.ExecutePurchase(ctx, alice, []domain.PurchaseItem{
		{Company: acme, ProductID: productID, Quantity: 1, UnitPrice: 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), receipt.Lines[0].Fee)

	// The buyer pays the full subtotal; the fee comes out of the company side
	balance, err := o.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	balance, err = o.BalanceOf(ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, int64(990), balance)

	balance, err = o.BalanceOf(ctx, feeCollector)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
}

func TestAdminGates(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOrchestrator(t, Config{})

	// Company directory changes are admin-only
	_, err := o.RegisterCompany(ctx, stranger, acme, "Acme")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = o.RegisterCompany(ctx, admin, acme, "Acme")
	require.NoError(t, err)

	err = o.SetCompanyActive(ctx, acme, acme, false)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, o.SetCompanyActive(ctx, admin, acme, false))
}

func TestCompanySelfGates(t *testing.T) {
	ctx := context.Background()
	o, _, _ := newTestOrchestrator(t, Config{})

	_, err := o.RegisterCompany(ctx, admin, acme, "Acme")
	require.NoError(t, err)

	// Catalog writes are company-self only; not even the admin may act for it
	_, _, err = o.CreateProduct(ctx, admin, acme, "Widget", 100, "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	productID, _, err := o.CreateProduct(ctx, acme, acme, "Widget", 100, "")
	require.NoError(t, err)

	err = o.SetProductActive(ctx, stranger, acme, productID, false)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	err = o.RegisterCustomer(ctx, stranger, acme, alice)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, o.RegisterCustomer(ctx, acme, acme, alice))

	record, err := o.CustomerInfo(ctx, acme, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), record.TotalPurchases)
}

func TestMarkInvoicePaidOutOfBand(t *testing.T) {
	ctx := context.Background()
	o, _, st := newTestOrchestrator(t, Config{})

	_, err := o.RegisterCompany(ctx, admin, acme, "Acme")
	require.NoError(t, err)

	// An invoice issued outside settlement starts unpaid
	number, err := st.CreateInvoice(ctx, &schema.Invoice{
		CompanyAddress:  acme.String(),
		CustomerAddress: alice.String(),
		TotalAmount:     500,
	})
	require.NoError(t, err)

	_, err = o.MarkInvoicePaid(ctx, stranger, acme, number)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	event, err := o.MarkInvoicePaid(ctx, acme, acme, number)
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypeInvoicePaid, event.EventType)

	// Marking paid twice is rejected
	_, err = o.MarkInvoicePaid(ctx, acme, acme, number)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}
