package schema

import (
	"time"
)

// Product represents the products table - per-company append-only catalog
type Product struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// CompanyAddress scopes the product to its company
	CompanyAddress string `gorm:"column:company_address;not null;type:text;uniqueIndex:idx_products_company_product,priority:1"`
	// ProductID is the sequential identifier within the company, starting at 1
	ProductID uint64 `gorm:"column:product_id;not null;uniqueIndex:idx_products_company_product,priority:2"`
	// Name is the product display name
	Name string `gorm:"column:name;not null;type:text"`
	// Price is the unit price in the smallest unit (cents)
	Price int64 `gorm:"column:price;not null"`
	// ContentRef is an opaque content-addressed reference (IPFS CID in practice); never interpreted
	ContentRef string `gorm:"column:content_ref;type:text"`
	// Active indicates whether the product can be purchased
	Active bool `gorm:"column:active;not null;default:true"`
	// CreatedAt is the creation timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
