package webhook

import "time"

// Header names set on every delivery
const (
	HeaderSignature = "X-Registry-Signature"
	HeaderTimestamp = "X-Registry-Timestamp"
	HeaderEventID   = "X-Registry-Event-ID"
)

// WebhookEvent represents a webhook event delivered to a collaborator
type WebhookEvent struct {
	// EventID is a unique identifier for this event (ULID for time-sortable uniqueness)
	EventID string `json:"event_id"`
	// EventType is the type of event (e.g., "name.holder_changed")
	EventType string `json:"event_type"`
	// Timestamp is when the event was generated
	Timestamp time.Time `json:"timestamp"`
	// Data contains the event-specific payload
	Data map[string]any `json:"data"`
}

// SignedPayload is a canonical JSON body with the headers authenticating it
type SignedPayload struct {
	Body      []byte
	Signature string
	Timestamp int64
	EventID   string
}

// Headers returns the HTTP headers carrying the signature
func (p SignedPayload) Headers() map[string]string {
	return map[string]string{
		HeaderSignature: p.Signature,
		HeaderTimestamp: formatTimestamp(p.Timestamp),
		HeaderEventID:   p.EventID,
	}
}
