package schema

import (
	"time"
)

// Invoice represents the invoices table - per-company settlement sequence
type Invoice struct {
	// ID is the internal database primary key; creation order follows it
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// CompanyAddress scopes the invoice number to its company
	CompanyAddress string `gorm:"column:company_address;not null;type:text;uniqueIndex:idx_invoices_company_number,priority:1;index:idx_invoices_company_customer,priority:1"`
	// Number is the sequential invoice number within the company, starting at 1, never reused
	Number uint64 `gorm:"column:number;not null;uniqueIndex:idx_invoices_company_number,priority:2"`
	// CustomerAddress is the buyer the invoice was issued to
	CustomerAddress string `gorm:"column:customer_address;not null;type:text;index:idx_invoices_company_customer,priority:2"`
	// TotalAmount is the invoiced amount in the smallest unit (cents)
	TotalAmount int64 `gorm:"column:total_amount;not null"`
	// Paid transitions false -> true exactly once and never reverses
	Paid bool `gorm:"column:paid;not null;default:false"`
	// IssuedAt is the issue timestamp
	IssuedAt time.Time `gorm:"column:issued_at;not null;default:now();type:timestamptz"`
	// CreatedAt is the record creation timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}
