package schema

import "time"

// IdentityToken represents the identity_tokens table - the token bound to each acquired name
type IdentityToken struct {
	// NameKey references name_records.key
	NameKey string `gorm:"column:name_key;primaryKey;type:varchar(66)"`
	// TokenID is the numeric token id (the key as a 256-bit integer)
	TokenID string `gorm:"column:token_id;not null;uniqueIndex;type:numeric(78,0)"`
	// Holder is the current token holder
	Holder string `gorm:"column:holder;not null;type:varchar(42)"`
	// UpdatedAt is the timestamp when the token last moved
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the IdentityToken model
func (IdentityToken) TableName() string {
	return "identity_tokens"
}

// HolderHistory represents the holder_history table - append-only audit trail of holder changes
type HolderHistory struct {
	// ID is an auto-incrementing sequence number, giving the order of changes
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	NameKey   string    `gorm:"column:name_key;not null;index;type:varchar(66)"`
	Holder    string    `gorm:"column:holder;not null;type:varchar(42)"`
	ChangedAt time.Time `gorm:"column:changed_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the HolderHistory model
func (HolderHistory) TableName() string {
	return "holder_history"
}
