package schema

// ReactionCount represents the reaction_counts table - per name engagement counters since the last acquisition
type ReactionCount struct {
	NameKey  string `gorm:"column:name_key;primaryKey;type:varchar(66)"`
	Reaction string `gorm:"column:reaction;primaryKey;type:varchar(16)"`
	Count    int64  `gorm:"column:count;not null;default:0"`
}

// TableName specifies the table name for the ReactionCount model
func (ReactionCount) TableName() string {
	return "reaction_counts"
}
