package schema

import (
	"time"
)

// CustomerAccount represents the customer_accounts table - the running
// purchase total per (company, customer) pair. The first purchase registers
// the pair implicitly.
type CustomerAccount struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// CompanyAddress scopes the record to a company
	CompanyAddress string `gorm:"column:company_address;not null;type:text;uniqueIndex:idx_customers_company_customer,priority:1"`
	// CustomerAddress is the customer's ledger identity
	CustomerAddress string `gorm:"column:customer_address;not null;type:text;uniqueIndex:idx_customers_company_customer,priority:2"`
	// TotalPurchases is the cumulative settled amount, monotonically non-decreasing
	TotalPurchases int64 `gorm:"column:total_purchases;not null;default:0"`
	// Active indicates whether the customer relationship is active
	Active bool `gorm:"column:active;not null;default:true"`
	// RegisteredAt is the timestamp of the first purchase or explicit registration
	RegisteredAt time.Time `gorm:"column:registered_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last recorded purchase
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the CustomerAccount model
func (CustomerAccount) TableName() string {
	return "customer_accounts"
}
