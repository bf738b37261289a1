package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameKey is the keccak256 hash of a name string
type NameKey = common.Hash

// KeyOf returns the key a name is stored under
func KeyOf(name string) NameKey {
	return crypto.Keccak256Hash([]byte(name))
}

// TokenIDOf returns the identity token id bound to a name key
func TokenIDOf(key NameKey) *big.Int {
	return new(big.Int).SetBytes(key.Bytes())
}

// Field is one of the private contact fields of a name
type Field string

const (
	FieldTelegram Field = "telegram"
	FieldEmail    Field = "email"
	FieldPhone    Field = "phone"
)

// Fields lists every private field in storage order
var Fields = []Field{FieldTelegram, FieldEmail, FieldPhone}

// IsValidField checks if a field is one of the known private fields
func IsValidField(f Field) bool {
	return f == FieldTelegram || f == FieldEmail || f == FieldPhone
}

// Reaction is one of the fixed paid engagement categories
type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionLove    Reaction = "love"
	ReactionFire    Reaction = "fire"
	ReactionDislike Reaction = "dislike"
)

// Reactions lists every reaction category
var Reactions = []Reaction{ReactionLike, ReactionLove, ReactionFire, ReactionDislike}

// IsValidReaction checks if a reaction category is known
func IsValidReaction(r Reaction) bool {
	switch r {
	case ReactionLike, ReactionLove, ReactionFire, ReactionDislike:
		return true
	}
	return false
}

// ParseReaction normalizes and validates a reaction category
func ParseReaction(s string) (Reaction, error) {
	r := Reaction(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidReaction(r) {
		return "", fmt.Errorf("%w: unknown reaction %q", ErrValidation, s)
	}
	return r, nil
}

// ParseField normalizes and validates a private field name
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidField(f) {
		return "", fmt.Errorf("%w: unknown field %q", ErrValidation, s)
	}
	return f, nil
}

// EventType represents the type of registry event written to the outbox
type EventType string

const (
	EventTypeRented         EventType = "name.rented"
	EventTypeURLUpdated     EventType = "name.url_updated"
	EventTypeReacted        EventType = "name.reacted"
	EventTypeRevealed       EventType = "name.revealed"
	EventTypeContactUpdated EventType = "name.contact_updated"
	EventTypeHolderChanged  EventType = "name.holder_changed"
	EventTypeWithdrawn      EventType = "treasury.withdrawn"
)

// Event is a notification produced by a committed operation.
// Data only carries JSON-friendly values (strings, numbers, bools)
type Event struct {
	// ID is a ULID assigned when the event is written to the outbox
	ID   string         `json:"id"`
	Type EventType      `json:"type"`
	Name string         `json:"name,omitempty"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data"`
}

// Economics holds every price and share the registry charges with
type Economics struct {
	BaseRentalPrice     *big.Int
	PriceMultiplier     uint64
	RentalPeriod        time.Duration
	URLUpdatePrice      *big.Int
	ReactionPrices      map[Reaction]*big.Int
	RevealPrices        map[Field]*big.Int
	ContactUpdatePrices map[Field]*big.Int
	RebateBps           uint64
	HolderShareBps      uint64
}

// Validate checks that the economics are complete and that shares fit in basis points
func (e Economics) Validate() error {
	if e.BaseRentalPrice == nil || e.BaseRentalPrice.Sign() < 0 {
		return fmt.Errorf("%w: base rental price must be non-negative", ErrValidation)
	}
	if e.URLUpdatePrice == nil || e.URLUpdatePrice.Sign() < 0 {
		return fmt.Errorf("%w: url update price must be non-negative", ErrValidation)
	}
	if e.PriceMultiplier == 0 {
		return fmt.Errorf("%w: price multiplier must be positive", ErrValidation)
	}
	if e.RentalPeriod <= 0 {
		return fmt.Errorf("%w: rental period must be positive", ErrValidation)
	}
	if e.RebateBps > BasisPoints || e.HolderShareBps > BasisPoints {
		return fmt.Errorf("%w: shares must not exceed %d bps", ErrValidation, BasisPoints)
	}
	for _, r := range Reactions {
		if p, ok := e.ReactionPrices[r]; !ok || p == nil || p.Sign() < 0 {
			return fmt.Errorf("%w: missing price for reaction %s", ErrValidation, r)
		}
	}
	for _, f := range Fields {
		if p, ok := e.RevealPrices[f]; !ok || p == nil || p.Sign() < 0 {
			return fmt.Errorf("%w: missing reveal price for %s", ErrValidation, f)
		}
		if p, ok := e.ContactUpdatePrices[f]; !ok || p == nil || p.Sign() < 0 {
			return fmt.Errorf("%w: missing contact update price for %s", ErrValidation, f)
		}
	}
	return nil
}

// Normalize returns a copy with default shares applied where none were configured
func (e Economics) Normalize() Economics {
	if e.RebateBps == 0 {
		e.RebateBps = DEFAULT_REBATE_BPS
	}
	if e.HolderShareBps == 0 {
		e.HolderShareBps = DEFAULT_HOLDER_SHARE_BPS
	}
	return e
}

// IsZeroAddress reports whether an address is the "none" identity
func IsZeroAddress(a common.Address) bool {
	return a == (common.Address{})
}
