package schema

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxStatus is the delivery status of an outbox event
type OutboxStatus string

const (
	// OutboxStatusPending is the status of an event not yet delivered
	OutboxStatusPending OutboxStatus = "pending"
	// OutboxStatusDelivered is the status of an event delivered to every sink
	OutboxStatusDelivered OutboxStatus = "delivered"
	// OutboxStatusFailed is the status of an event that exhausted its attempts
	OutboxStatusFailed OutboxStatus = "failed"
)

// OutboxEvent represents the outbox_events table - notifications written in the same
// transaction as the state change that produced them
type OutboxEvent struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EventID is a unique identifier for this event (ULID for time-sortable uniqueness)
	EventID string `gorm:"column:event_id;not null;uniqueIndex;type:varchar(26)"`
	// EventType is the type of event (e.g., "name.rented")
	EventType string `gorm:"column:event_type;not null;type:varchar(50)"`
	// Name is the name the event is about, empty for registry-wide events
	Name string `gorm:"column:name;not null;default:'';type:varchar(128)"`
	// Payload is the complete event as JSON
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// Status indicates the current status: pending, delivered, failed
	Status OutboxStatus `gorm:"column:status;not null;default:pending"`
	// Attempts is the number of delivery attempts made
	Attempts int `gorm:"column:attempts;not null;default:0"`
	// LastAttemptAt is the timestamp of the most recent delivery attempt
	LastAttemptAt *time.Time `gorm:"column:last_attempt_at;type:timestamptz"`
	// ErrorMessage contains error details of the last failed attempt
	ErrorMessage string `gorm:"column:error_message;type:text"`
	// DeliveredAt is the timestamp when the event was delivered
	DeliveredAt *time.Time `gorm:"column:delivered_at;type:timestamptz"`
	// CreatedAt is the timestamp when this event was written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the OutboxEvent model
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
