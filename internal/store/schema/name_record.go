package schema

import "time"

// NameRecord represents the name_records table - the leasing state of every name ever created
type NameRecord struct {
	// Key is the keccak256 hash of the name, hex encoded
	Key string `gorm:"column:key;primaryKey;type:varchar(66)"`
	// Position is the arena index of the name, equal to its creation order
	Position int `gorm:"column:position;not null;uniqueIndex"`
	// Name is the name string as acquired
	Name string `gorm:"column:name;not null;type:varchar(128)"`
	// Holder is the current holder address (NULL before first acquisition)
	Holder *string `gorm:"column:holder;type:varchar(42)"`
	// LastUpdatedAt is the time of the last acquisition
	LastUpdatedAt *time.Time `gorm:"column:last_updated_at;type:timestamptz"`
	// LastPrice is the price paid at the last acquisition (numeric to hold 256-bit values)
	LastPrice string `gorm:"column:last_price;not null;default:0;type:numeric(78,0)"`
	// PresentedURL is the holder supplied url
	PresentedURL string `gorm:"column:presented_url;not null;default:'';type:varchar(1024)"`
	// PrevPosition is the position of the previously created name
	PrevPosition *int `gorm:"column:prev_position"`
	// NextPosition is the position of the next created name
	NextPosition *int `gorm:"column:next_position"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the NameRecord model
func (NameRecord) TableName() string {
	return "name_records"
}
