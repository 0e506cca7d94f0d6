package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

var (
	testCompanyA  = domain.MustIdentity("0x1111111111111111111111111111111111111111")
	testCompanyB  = domain.MustIdentity("0x2222222222222222222222222222222222222222")
	testCustomerA = domain.MustIdentity("0x3333333333333333333333333333333333333333")
	testCustomerB = domain.MustIdentity("0x4444444444444444444444444444444444444444")
	testWriter    = domain.MustIdentity("0x5555555555555555555555555555555555555555")
)

// buildTestCompany creates a company record for the given identity
func buildTestCompany(address domain.Identity, name string) *schema.Company {
	return &schema.Company{
		Address: address.String(),
		Name:    name,
		Active:  true,
	}
}

// buildTestProduct creates a product record; the store assigns the ProductID
func buildTestProduct(company domain.Identity, name string, price int64) *schema.Product {
	return &schema.Product{
		CompanyAddress: company.String(),
		Name:           name,
		Price:          price,
		ContentRef:     "QmTestContentRef",
		Active:         true,
	}
}

// buildTestInvoice creates an invoice record; the store assigns the Number
func buildTestInvoice(company, customer domain.Identity, total int64) *schema.Invoice {
	return &schema.Invoice{
		CompanyAddress:  company.String(),
		CustomerAddress: customer.String(),
		TotalAmount:     total,
	}
}

// =============================================================================
// Shared test cases
// =============================================================================

func testWirings(t *testing.T, s Store) {
	ctx := context.Background()

	// Missing wirings fail with ErrNotWired
	_, err := s.GetWiring(ctx, domain.WiringWriterKey(domain.RegistryCompany))
	require.ErrorIs(t, err, domain.ErrNotWired)

	// First assignment succeeds and round-trips
	err = s.SetWiring(ctx, domain.WiringWriterKey(domain.RegistryCompany), testWriter)
	require.NoError(t, err)

	got, err := s.GetWiring(ctx, domain.WiringWriterKey(domain.RegistryCompany))
	require.NoError(t, err)
	assert.True(t, testWriter.Equal(got))

	// Wirings are set-once
	err = s.SetWiring(ctx, domain.WiringWriterKey(domain.RegistryCompany), testCompanyA)
	require.ErrorIs(t, err, domain.ErrAlreadyWired)

	// The original assignment is untouched
	got, err = s.GetWiring(ctx, domain.WiringWriterKey(domain.RegistryCompany))
	require.NoError(t, err)
	assert.True(t, testWriter.Equal(got))

	// Distinct names are independent
	err = s.SetWiring(ctx, domain.WiringTokenFeeCollector, testCompanyB)
	require.NoError(t, err)
}

func testBalances(t *testing.T, s Store) {
	ctx := context.Background()

	// Unknown accounts have a zero balance
	balance, err := s.GetBalance(ctx, testCustomerA)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	// First credit creates the account
	require.NoError(t, s.AddBalance(ctx, testCustomerA, 1000))
	balance, err = s.GetBalance(ctx, testCustomerA)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	// Changes are relative, not absolute
	require.NoError(t, s.AddBalance(ctx, testCustomerA, 250))
	require.NoError(t, s.AddBalance(ctx, testCustomerA, -1000))
	balance, err = s.GetBalance(ctx, testCustomerA)
	require.NoError(t, err)
	assert.Equal(t, int64(250), balance)

	// A debit below zero fails and leaves the balance untouched
	err = s.AddBalance(ctx, testCustomerA, -251)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	balance, err = s.GetBalance(ctx, testCustomerA)
	require.NoError(t, err)
	assert.Equal(t, int64(250), balance)

	// Debiting an account that was never credited fails the same way
	err = s.AddBalance(ctx, testCustomerB, -1)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Other accounts are unaffected
	balance, err = s.GetBalance(ctx, testCustomerB)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func testAllowances(t *testing.T, s Store) {
	ctx := context.Background()

	allowance, err := s.GetAllowance(ctx, testCustomerA, testCustomerB)
	require.NoError(t, err)
	assert.Equal(t, int64(0), allowance)

	require.NoError(t, s.SetAllowance(ctx, testCustomerA, testCustomerB, 500))
	allowance, err = s.GetAllowance(ctx, testCustomerA, testCustomerB)
	require.NoError(t, err)
	assert.Equal(t, int64(500), allowance)

	// Allowances are directional
	allowance, err = s.GetAllowance(ctx, testCustomerB, testCustomerA)
	require.NoError(t, err)
	assert.Equal(t, int64(0), allowance)

	// Setting is absolute, not additive
	require.NoError(t, s.SetAllowance(ctx, testCustomerA, testCustomerB, 100))
	allowance, err = s.GetAllowance(ctx, testCustomerA, testCustomerB)
	require.NoError(t, err)
	assert.Equal(t, int64(100), allowance)
}

func testTokenStats(t *testing.T, s Store) {
	ctx := context.Background()

	minted, burned, err := s.GetTokenStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), minted)
	assert.Equal(t, int64(0), burned)

	require.NoError(t, s.AddTokenStats(ctx, 1000, 0))
	require.NoError(t, s.AddTokenStats(ctx, 500, 200))

	minted, burned, err = s.GetTokenStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), minted)
	assert.Equal(t, int64(200), burned)
}

func testCompanies(t *testing.T, s Store) {
	ctx := context.Background()

	// Lookup of an unregistered company returns nil without error
	company, err := s.GetCompany(ctx, testCompanyA)
	require.NoError(t, err)
	assert.Nil(t, company)

	require.NoError(t, s.CreateCompany(ctx, buildTestCompany(testCompanyA, "Acme")))
	require.NoError(t, s.CreateCompany(ctx, buildTestCompany(testCompanyB, "Globex")))

	// Identities are unique
	err = s.CreateCompany(ctx, buildTestCompany(testCompanyA, "Acme again"))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	company, err = s.GetCompany(ctx, testCompanyA)
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(t, "Acme", company.Name)
	assert.True(t, company.Active)

	// Listing follows registration order
	companies, err := s.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, testCompanyA.String(), companies[0].Address)
	assert.Equal(t, testCompanyB.String(), companies[1].Address)

	// Deactivation flips the flag in place
	require.NoError(t, s.SetCompanyActive(ctx, testCompanyA, false))
	company, err = s.GetCompany(ctx, testCompanyA)
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.False(t, company.Active)

	err = s.SetCompanyActive(ctx, testCustomerA, false)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func testProductSequence(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateCompany(ctx, buildTestCompany(testCompanyA, "Acme")))
	require.NoError(t, s.CreateCompany(ctx, buildTestCompany(testCompanyB, "Globex")))

	// Product ids are sequential per company, starting at 1
	id, err := s.CreateProduct(ctx, buildTestProduct(testCompanyA, "Widget", 100))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	id, err = s.CreateProduct(ctx, buildTestProduct(testCompanyA, "Gadget", 200))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)

	// Sequences are independent across companies
	id, err = s.CreateProduct(ctx, buildTestProduct(testCompanyB, "Sprocket", 300))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	product, err := s.GetProduct(ctx, testCompanyA, 2)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "Gadget", product.Name)
	assert.Equal(t, int64(200), product.Price)

	product, err = s.GetProduct(ctx, testCompanyA, 99)
	require.NoError(t, err)
	assert.Nil(t, product)

	products, err := s.ListProducts(ctx, testCompanyA)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, uint64(1), products[0].ProductID)
	assert.Equal(t, uint64(2), products[1].ProductID)

	require.NoError(t, s.SetProductActive(ctx, testCompanyA, 1, false))
	product, err = s.GetProduct(ctx, testCompanyA, 1)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.False(t, product.Active)

	err = s.SetProductActive(ctx, testCompanyA, 99, false)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func testCustomers(t *testing.T, s Store) {
	ctx := context.Background()

	account, err := s.GetCustomer(ctx, testCompanyA, testCustomerA)
	require.NoError(t, err)
	assert.Nil(t, account)

	require.NoError(t, s.SaveCustomer(ctx, &schema.CustomerAccount{
		CompanyAddress:  testCompanyA.String(),
		CustomerAddress: testCustomerA.String(),
		TotalPurchases:  0,
		Active:          true,
	}))

	account, err = s.GetCustomer(ctx, testCompanyA, testCustomerA)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(0), account.TotalPurchases)

	// Upsert accumulates via the caller-provided total
	account.TotalPurchases = 150
	require.NoError(t, s.SaveCustomer(ctx, account))

	account, err = s.GetCustomer(ctx, testCompanyA, testCustomerA)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(150), account.TotalPurchases)

	// Records are scoped per (company, customer)
	account, err = s.GetCustomer(ctx, testCompanyB, testCustomerA)
	require.NoError(t, err)
	assert.Nil(t, account)
}

func testInvoiceSequence(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.CreateCompany(ctx, buildTestCompany(testCompanyA, "Acme")))
	require.NoError(t, s.CreateCompany(ctx, buildTestCompany(testCompanyB, "Globex")))

	// Invoice numbers are sequential per company, starting at 1
	number, err := s.CreateInvoice(ctx, buildTestInvoice(testCompanyA, testCustomerA, 100))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), number)

	number, err = s.CreateInvoice(ctx, buildTestInvoice(testCompanyA, testCustomerB, 200))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), number)

	number, err = s.CreateInvoice(ctx, buildTestInvoice(testCompanyB, testCustomerA, 300))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), number)

	invoice, err := s.GetInvoice(ctx, testCompanyA, 2)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.Equal(t, testCustomerB.String(), invoice.CustomerAddress)
	assert.Equal(t, int64(200), invoice.TotalAmount)
	assert.False(t, invoice.Paid)

	invoice, err = s.GetInvoice(ctx, testCompanyA, 99)
	require.NoError(t, err)
	assert.Nil(t, invoice)

	invoices, err := s.ListInvoicesByCompany(ctx, testCompanyA)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, uint64(1), invoices[0].Number)
	assert.Equal(t, uint64(2), invoices[1].Number)

	invoices, err = s.ListInvoicesByCustomer(ctx, testCompanyA, testCustomerA)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, uint64(1), invoices[0].Number)

	require.NoError(t, s.UpdateInvoicePaid(ctx, testCompanyA, 1))
	invoice, err = s.GetInvoice(ctx, testCompanyA, 1)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.True(t, invoice.Paid)

	// The paid flag flips exactly once, even at the store level
	err = s.UpdateInvoicePaid(ctx, testCompanyA, 1)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	err = s.UpdateInvoicePaid(ctx, testCompanyA, 99)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func testAppendEvent(t *testing.T, s Store) {
	ctx := context.Background()

	err := s.AppendEvent(ctx, &schema.LedgerEvent{
		EventID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		EventType:      "token.minted",
		SubjectAddress: testCustomerA.String(),
		Amount:         975,
		Fee:            25,
	})
	require.NoError(t, err)
}

func testAtomicallyCommit(t *testing.T, s Store) {
	ctx := context.Background()

	err := s.Atomically(ctx, func(tx Store) error {
		if err := tx.AddBalance(ctx, testCustomerA, 100); err != nil {
			return err
		}
		return tx.AddBalance(ctx, testCustomerB, 200)
	})
	require.NoError(t, err)

	balance, err := s.GetBalance(ctx, testCustomerA)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = s.GetBalance(ctx, testCustomerB)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance)
}

func testAtomicallyRollback(t *testing.T, s Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, s.AddBalance(ctx, testCustomerA, 100))

	err := s.Atomically(ctx, func(tx Store) error {
		if err := tx.AddBalance(ctx, testCustomerA, -100); err != nil {
			return err
		}
		if err := tx.AddBalance(ctx, testCustomerB, 100); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Neither write survives
	balance, err := s.GetBalance(ctx, testCustomerA)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = s.GetBalance(ctx, testCustomerB)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func testAtomicallyNested(t *testing.T, s Store) {
	ctx := context.Background()

	// A nested transaction joins the enclosing scope: its writes commit and
	// roll back with the outer transaction.
	err := s.Atomically(ctx, func(tx Store) error {
		if err := tx.AddBalance(ctx, testCustomerA, 100); err != nil {
			return err
		}
		return tx.Atomically(ctx, func(inner Store) error {
			return inner.AddBalance(ctx, testCustomerB, 200)
		})
	})
	require.NoError(t, err)

	balance, err := s.GetBalance(ctx, testCustomerB)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance)
}

// RunStoreTests runs the shared store test suite against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Wirings", testWirings},
		{"Balances", testBalances},
		{"Allowances", testAllowances},
		{"TokenStats", testTokenStats},
		{"Companies", testCompanies},
		{"ProductSequence", testProductSequence},
		{"Customers", testCustomers},
		{"InvoiceSequence", testInvoiceSequence},
		{"AppendEvent", testAppendEvent},
		{"AtomicallyCommit", testAtomicallyCommit},
		{"AtomicallyRollback", testAtomicallyRollback},
		{"AtomicallyNested", testAtomicallyNested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
