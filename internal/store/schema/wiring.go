package schema

import (
	"time"
)

// Wiring represents the wirings table - set-once capability assignments made
// during bootstrap (registry writers, token payment contract, fee collector).
// Rows are inserted exactly once and never updated.
type Wiring struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Name is the capability name, e.g. "company.writer" or "token.payment_contract"
	Name string `gorm:"column:name;not null;uniqueIndex;type:text"`
	// Identity is the address holding the capability
	Identity string `gorm:"column:identity;not null;type:text"`
	// CreatedAt is the handoff timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Wiring model
func (Wiring) TableName() string {
	return "wirings"
}
