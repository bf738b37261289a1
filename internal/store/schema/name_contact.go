package schema

import "time"

// NameContact represents the name_contacts table - private contact fields owned by the holder
type NameContact struct {
	// NameKey references name_records.key
	NameKey string `gorm:"column:name_key;primaryKey;type:varchar(66)"`
	// Field is one of telegram, email, phone
	Field string `gorm:"column:field;primaryKey;type:varchar(16)"`
	// Value is the field content, empty when cleared
	Value string `gorm:"column:value;not null;default:'';type:varchar(256)"`
	// FieldUpdatedAt is the last time the value changed, including clears on holder change
	FieldUpdatedAt time.Time `gorm:"column:field_updated_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the NameContact model
func (NameContact) TableName() string {
	return "name_contacts"
}

// RevealGrant represents the reveal_grants table - the last time a requester paid to read a field
type RevealGrant struct {
	Requester string    `gorm:"column:requester;primaryKey;type:varchar(42)"`
	NameKey   string    `gorm:"column:name_key;primaryKey;type:varchar(66)"`
	Field     string    `gorm:"column:field;primaryKey;type:varchar(16)"`
	GrantedAt time.Time `gorm:"column:granted_at;not null;type:timestamptz"`
}

// TableName specifies the table name for the RevealGrant model
func (RevealGrant) TableName() string {
	return "reveal_grants"
}
