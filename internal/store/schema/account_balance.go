package schema

import "time"

// AccountBalance represents the account_balances table - native value held per address in the vault
type AccountBalance struct {
	// Address is the account address
	Address string `gorm:"column:address;primaryKey;type:varchar(42)"`
	// Balance is stored as numeric to support 256-bit amounts
	Balance string `gorm:"column:balance;not null;type:numeric(78,0)"`
	// UpdatedAt is the timestamp when this balance was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the AccountBalance model
func (AccountBalance) TableName() string {
	return "account_balances"
}
