package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the ledger schema and seeds the token stats
// singleton row.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&schema.Account{},
		&schema.Allowance{},
		&schema.TokenStats{},
		&schema.Company{},
		&schema.Product{},
		&schema.CustomerAccount{},
		&schema.Invoice{},
		&schema.Wiring{},
		&schema.LedgerEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	stats := schema.TokenStats{ID: 1}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&stats).Error; err != nil {
		return fmt.Errorf("failed to seed token stats: %w", err)
	}

	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m lifetime, 10m idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// Atomically runs fn inside a database transaction with a tx-scoped store.
func (s *pgStore) Atomically(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

// SetWiring records a set-once capability assignment
func (s *pgStore) SetWiring(ctx context.Context, name string, identity domain.Identity) error {
	wiring := schema.Wiring{
		Name:     name,
		Identity: identity.String(),
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&wiring)
	if res.Error != nil {
		return fmt.Errorf("failed to set wiring %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("wiring %q: %w", name, domain.ErrAlreadyWired)
	}

	return nil
}

// GetWiring retrieves a capability assignment
func (s *pgStore) GetWiring(ctx context.Context, name string) (domain.Identity, error) {
	var wiring schema.Wiring
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&wiring).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("wiring %q: %w", name, domain.ErrNotWired)
		}
		return "", fmt.Errorf("failed to get wiring %q: %w", name, err)
	}

	return domain.Identity(wiring.Identity), nil
}

// GetBalance retrieves an account balance, zero for unknown accounts
func (s *pgStore) GetBalance(ctx context.Context, address domain.Identity) (int64, error) {
	var account schema.Account
	err := s.db.WithContext(ctx).Where("address = ?", address.String()).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return account.Balance, nil
}

// AddBalance applies a relative balance change. Using relative expressions
// keeps concurrent READ COMMITTED transactions from overwriting each other's
// credits; debits carry their guard in the WHERE clause.
func (s *pgStore) AddBalance(ctx context.Context, address domain.Identity, delta int64) error {
	if delta >= 0 {
		account := schema.Account{
			Address: address.String(),
			Balance: delta,
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "address"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance":    gorm.Expr("accounts.balance + ?", delta),
				"updated_at": gorm.Expr("now()"),
			}),
		}).Create(&account).Error
		if err != nil {
			return fmt.Errorf("failed to credit balance: %w", err)
		}
		return nil
	}

	res := s.db.WithContext(ctx).Model(&schema.Account{}).
		Where("address = ? AND balance >= ?", address.String(), -delta).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": gorm.Expr("now()"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to debit balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("account %s: %w", address, domain.ErrInsufficientBalance)
	}

	return nil
}

// GetAllowance retrieves the remaining approved amount, zero when absent
func (s *pgStore) GetAllowance(ctx context.Context, owner, spender domain.Identity) (int64, error) {
	var allowance schema.Allowance
	err := s.db.WithContext(ctx).
		Where("owner_address = ? AND spender_address = ?", owner.String(), spender.String()).
		First(&allowance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get allowance: %w", err)
	}

	return allowance.Amount, nil
}

// SetAllowance upserts the approved amount for (owner, spender)
func (s *pgStore) SetAllowance(ctx context.Context, owner, spender domain.Identity, amount int64) error {
	allowance := schema.Allowance{
		OwnerAddress:   owner.String(),
		SpenderAddress: spender.String(),
		Amount:         amount,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_address"}, {Name: "spender_address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"amount": amount, "updated_at": gorm.Expr("now()")}),
	}).Create(&allowance).Error
	if err != nil {
		return fmt.Errorf("failed to set allowance: %w", err)
	}

	return nil
}

// GetTokenStats retrieves the cumulative minted and burned totals
func (s *pgStore) GetTokenStats(ctx context.Context) (int64, int64, error) {
	var stats schema.TokenStats
	err := s.db.WithContext(ctx).Where("id = 1").First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to get token stats: %w", err)
	}

	return stats.TotalMinted, stats.TotalBurned, nil
}

// AddTokenStats adds deltas to the cumulative minted and burned totals
func (s *pgStore) AddTokenStats(ctx context.Context, mintedDelta, burnedDelta int64) error {
	stats := schema.TokenStats{
		ID:          1,
		TotalMinted: mintedDelta,
		TotalBurned: burnedDelta,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_minted": gorm.Expr("token_stats.total_minted + ?", mintedDelta),
			"total_burned": gorm.Expr("token_stats.total_burned + ?", burnedDelta),
			"updated_at":   gorm.Expr("now()"),
		}),
	}).Create(&stats).Error
	if err != nil {
		return fmt.Errorf("failed to update token stats: %w", err)
	}

	return nil
}

// CreateCompany inserts a company record
func (s *pgStore) CreateCompany(ctx context.Context, company *schema.Company) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoNothing: true,
	}).Create(company)
	if res.Error != nil {
		return fmt.Errorf("failed to create company: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("company %s: %w", company.Address, domain.ErrAlreadyExists)
	}

	return nil
}

// GetCompany retrieves a company by identity
func (s *pgStore) GetCompany(ctx context.Context, address domain.Identity) (*schema.Company, error) {
	var company schema.Company
	err := s.db.WithContext(ctx).Where("address = ?", address.String()).First(&company).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &company, nil
}

// ListCompanies retrieves all companies in registration order
func (s *pgStore) ListCompanies(ctx context.Context) ([]schema.Company, error) {
	var companies []schema.Company
	err := s.db.WithContext(ctx).Order("id ASC").Find(&companies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	return companies, nil
}

// SetCompanyActive flips a company's active flag
func (s *pgStore) SetCompanyActive(ctx context.Context, address domain.Identity, active bool) error {
	res := s.db.WithContext(ctx).Model(&schema.Company{}).
		Where("address = ?", address.String()).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update company: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("company %s: %w", address, domain.ErrNotFound)
	}

	return nil
}

// CreateProduct inserts a product, assigning the next sequential id for its
// company. Sequence allocation relies on the single-writer model; the unique
// index on (company_address, product_id) is the backstop.
func (s *pgStore) CreateProduct(ctx context.Context, product *schema.Product) (uint64, error) {
	var maxID uint64
	err := s.db.WithContext(ctx).Model(&schema.Product{}).
		Where("company_address = ?", product.CompanyAddress).
		Select("COALESCE(MAX(product_id), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, fmt.Errorf("failed to allocate product id: %w", err)
	}

	product.ProductID = maxID + 1
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}

	return product.ProductID, nil
}

// GetProduct retrieves a product by (company, id)
func (s *pgStore) GetProduct(ctx context.Context, company domain.Identity, productID uint64) (*schema.Product, error) {
	var product schema.Product
	err := s.db.WithContext(ctx).
		Where("company_address = ? AND product_id = ?", company.String(), productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// ListProducts retrieves a company's products in creation order
func (s *pgStore) ListProducts(ctx context.Context, company domain.Identity) ([]schema.Product, error) {
	var products []schema.Product
	err := s.db.WithContext(ctx).
		Where("company_address = ?", company.String()).
		Order("product_id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

// SetProductActive flips a product's active flag
func (s *pgStore) SetProductActive(ctx context.Context, company domain.Identity, productID uint64, active bool) error {
	res := s.db.WithContext(ctx).Model(&schema.Product{}).
		Where("company_address = ? AND product_id = ?", company.String(), productID).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s/%d: %w", company, productID, domain.ErrNotFound)
	}

	return nil
}

// GetCustomer retrieves the (company, customer) purchase record
func (s *pgStore) GetCustomer(ctx context.Context, company, customer domain.Identity) (*schema.CustomerAccount, error) {
	var account schema.CustomerAccount
	err := s.db.WithContext(ctx).
		Where("company_address = ? AND customer_address = ?", company.String(), customer.String()).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &account, nil
}

// SaveCustomer upserts the (company, customer) purchase record
func (s *pgStore) SaveCustomer(ctx context.Context, customer *schema.CustomerAccount) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_address"}, {Name: "customer_address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_purchases": customer.TotalPurchases,
			"active":          customer.Active,
			"updated_at":      gorm.Expr("now()"),
		}),
	}).Create(customer).Error
	if err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}

	return nil
}

// CreateInvoice inserts an invoice, assigning the next sequential number for
// its company.
func (s *pgStore) CreateInvoice(ctx context.Context, invoice *schema.Invoice) (uint64, error) {
	var maxNumber uint64
	err := s.db.WithContext(ctx).Model(&schema.Invoice{}).
		Where("company_address = ?", invoice.CompanyAddress).
		Select("COALESCE(MAX(number), 0)").
		Scan(&maxNumber).Error
	if err != nil {
		return 0, fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	invoice.Number = maxNumber + 1
	if err := s.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return 0, fmt.Errorf("failed to create invoice: %w", err)
	}

	return invoice.Number, nil
}

// GetInvoice retrieves an invoice by (company, number)
func (s *pgStore) GetInvoice(ctx context.Context, company domain.Identity, number uint64) (*schema.Invoice, error) {
	var invoice schema.Invoice
	err := s.db.WithContext(ctx).
		Where("company_address = ? AND number = ?", company.String(), number).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return &invoice, nil
}

// ListInvoicesByCompany retrieves a company's invoices in creation order
func (s *pgStore) ListInvoicesByCompany(ctx context.Context, company domain.Identity) ([]schema.Invoice, error) {
	var invoices []schema.Invoice
	err := s.db.WithContext(ctx).
		Where("company_address = ?", company.String()).
		Order("number ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	return invoices, nil
}

// ListInvoicesByCustomer retrieves the invoices issued to a customer by a
// company, in creation order
func (s *pgStore) ListInvoicesByCustomer(ctx context.Context, company, customer domain.Identity) ([]schema.Invoice, error) {
	var invoices []schema.Invoice
	err := s.db.WithContext(ctx).
		Where("company_address = ? AND customer_address = ?", company.String(), customer.String()).
		Order("number ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices by customer: %w", err)
	}

	return invoices, nil
}

// UpdateInvoicePaid marks an invoice paid exactly once. The paid=false guard
// in the WHERE clause is the database backstop for the false→true transition:
// a concurrent transaction that already flipped the flag leaves this one with
// zero affected rows instead of a silent re-apply.
func (s *pgStore) UpdateInvoicePaid(ctx context.Context, company domain.Identity, number uint64) error {
	res := s.db.WithContext(ctx).Model(&schema.Invoice{}).
		Where("company_address = ? AND number = ? AND paid = false", company.String(), number).
		Update("paid", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		invoice, err := s.GetInvoice(ctx, company, number)
		if err != nil {
			return err
		}
		if invoice == nil {
			return fmt.Errorf("invoice %s/%d: %w", company, number, domain.ErrNotFound)
		}
		return fmt.Errorf("invoice %s/%d already paid: %w", company, number, domain.ErrInvalidState)
	}

	return nil
}

// AppendEvent persists a ledger event row
func (s *pgStore) AppendEvent(ctx context.Context, event *schema.LedgerEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append ledger event: %w", err)
	}

	return nil
}
