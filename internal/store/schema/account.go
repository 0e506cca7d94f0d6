package schema

import (
	"time"
)

// Account represents the accounts table - one row per token balance holder
type Account struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Address is the checksummed participant address
	Address string `gorm:"column:address;not null;uniqueIndex;type:text"`
	// Balance is the token balance in the smallest unit (cents)
	Balance int64 `gorm:"column:balance;not null;default:0"`
	// CreatedAt is the timestamp when this account was first credited
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this balance was last changed
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}

// Allowance represents the allowances table - absolute spender approvals
type Allowance struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// OwnerAddress is the address granting the allowance
	OwnerAddress string `gorm:"column:owner_address;not null;type:text;uniqueIndex:idx_allowances_owner_spender,priority:1"`
	// SpenderAddress is the address allowed to move the owner's tokens
	SpenderAddress string `gorm:"column:spender_address;not null;type:text;uniqueIndex:idx_allowances_owner_spender,priority:2"`
	// Amount is the remaining approved amount (absolute, not incremental)
	Amount int64 `gorm:"column:amount;not null;default:0"`
	// UpdatedAt is the timestamp of the last approval or spend
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Allowance model
func (Allowance) TableName() string {
	return "allowances"
}

// TokenStats represents the token_stats table - a singleton row tracking the
// conservation invariant (sum of balances + burned == minted)
type TokenStats struct {
	// ID is always 1
	ID int64 `gorm:"column:id;primaryKey"`
	// TotalMinted is the cumulative amount ever credited by deposits (net of fee routing; fees stay in balances)
	TotalMinted int64 `gorm:"column:total_minted;not null;default:0"`
	// TotalBurned is the cumulative amount ever burned by withdrawals
	TotalBurned int64 `gorm:"column:total_burned;not null;default:0"`
	// UpdatedAt is the timestamp of the last mint or burn
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the TokenStats model
func (TokenStats) TableName() string {
	return "token_stats"
}
