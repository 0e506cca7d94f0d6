package schema

import (
	"time"
)

// Company represents the companies table - the company directory
type Company struct {
	// ID is the internal database primary key; listing order follows it
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Address is the company's ledger identity
	Address string `gorm:"column:address;not null;uniqueIndex;type:text"`
	// Name is the display name
	Name string `gorm:"column:name;not null;type:text"`
	// Active indicates whether the company may sell; deactivation is the only removal semantic
	Active bool `gorm:"column:active;not null;default:true"`
	// CreatedAt is the registration timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Company model
func (Company) TableName() string {
	return "companies"
}
