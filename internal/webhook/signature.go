package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/feral-file/ff-name-registry/internal/adapter"
)

// Signer produces signed webhook payloads
type Signer struct {
	secret string
	json   adapter.JSON
	clock  adapter.Clock
}

// NewSigner creates a signer using secret for HMAC-SHA256
func NewSigner(secret string, json adapter.JSON, clock adapter.Clock) *Signer {
	return &Signer{secret: secret, json: json, clock: clock}
}

// Sign serializes the event as canonical JSON and signs it.
// The signed string is {timestamp}.{event_id}.{body}, which lets receivers
// reject replays by timestamp, deduplicate by event id and check integrity.
func (s *Signer) Sign(event WebhookEvent) (SignedPayload, error) {
	body, err := s.json.MarshalCanonical(event)
	if err != nil {
		return SignedPayload{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	timestamp := s.clock.Now().Unix()
	return SignedPayload{
		Body:      body,
		Signature: computeSignature(s.secret, timestamp, event.EventID, body),
		Timestamp: timestamp,
		EventID:   event.EventID,
	}, nil
}

// Verify checks a signature header against the body it was sent with
func Verify(secret string, timestamp int64, eventID string, body []byte, signature string) bool {
	expected := computeSignature(secret, timestamp, eventID, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func computeSignature(secret string, timestamp int64, eventID string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(fmt.Sprintf("%d.%s.%s", timestamp, eventID, body)))
	// Format: "sha256=<hex_signature>"
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

func formatTimestamp(ts int64) string {
	return strconv.FormatInt(ts, 10)
}
