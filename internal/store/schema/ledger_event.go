package schema

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerEvent represents the ledger_events table - the persisted audit trail.
// One row is written per auditable state transition, inside the same
// transaction as the transition itself.
type LedgerEvent struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EventID is the ULID assigned at emission time
	EventID string `gorm:"column:event_id;not null;uniqueIndex;type:text"`
	// EventType is the event kind, e.g. "token.minted" or "settlement.executed"
	EventType string `gorm:"column:event_type;not null;type:text;index"`
	// CompanyAddress is the company involved, empty for token-only events
	CompanyAddress string `gorm:"column:company_address;type:text;index"`
	// SubjectAddress is the primary participant (buyer, seller, customer)
	SubjectAddress string `gorm:"column:subject_address;not null;type:text;index"`
	// Amount is the principal amount of the transition
	Amount int64 `gorm:"column:amount;not null"`
	// Fee is the fee computed for the transition, zero when none applies
	Fee int64 `gorm:"column:fee;not null;default:0"`
	// Reference groups the events of a single settlement call
	Reference string `gorm:"column:reference;type:text;index"`
	// Payload is the full marshaled event as published to the broker
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb"`
	// CreatedAt is the emission timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the LedgerEvent model
func (LedgerEvent) TableName() string {
	return "ledger_events"
}
