package lease

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
)

// AcquireRequest is the input of an acquisition
type AcquireRequest struct {
	Name     string
	URL      string
	Telegram string
	Email    string
	Phone    string
}

// AcquireResult is the outcome of an acquisition
type AcquireResult struct {
	Name           string
	Holder         common.Address
	PreviousHolder common.Address
	Price          *big.Int
	Rebate         *big.Int
	Refund         *big.Int
}

// ContactUpdate names the private fields to overwrite. Nil fields are left unchanged.
type ContactUpdate struct {
	Telegram *string
	Email    *string
	Phone    *string
}

func (u ContactUpdate) fields() map[domain.Field]string {
	out := make(map[domain.Field]string, 3)
	if u.Telegram != nil {
		out[domain.FieldTelegram] = *u.Telegram
	}
	if u.Email != nil {
		out[domain.FieldEmail] = *u.Email
	}
	if u.Phone != nil {
		out[domain.FieldPhone] = *u.Phone
	}
	return out
}

// PaymentResult is the outcome of a paid operation
type PaymentResult struct {
	Required *big.Int
	Refund   *big.Int
}

// RevealResult is the outcome of a reveal request. Granted is false when the
// requester already held a current grant and the payment was refunded in full.
type RevealResult struct {
	Granted bool
	Refund  *big.Int
}

// EconomicsUpdate holds the runtime-adjustable economics. Zero values are left unchanged.
type EconomicsUpdate struct {
	BaseRentalPrice *big.Int
	PriceMultiplier uint64
	RentalPeriod    time.Duration
}

// NameEntry is one name in creation order
type NameEntry struct {
	Position int
	Name     string
	Key      domain.NameKey
}

// NameView is the public view of a name
type NameView struct {
	Name          string
	Key           domain.NameKey
	TokenID       *big.Int
	Holder        common.Address
	LastUpdatedAt time.Time
	LastPrice     *big.Int
	PresentedURL  string
	ExpiresAt     time.Time
	Expired       bool
	Reactions     map[domain.Reaction]uint64
}

// HolderChange is one entry of a name's holder history
type HolderChange struct {
	Holder common.Address
	At     time.Time
}

// Stats holds the registry counters
type Stats struct {
	Names           int
	Acquisitions    uint64
	Reactions       uint64
	Reveals         uint64
	TreasuryBalance *big.Int
	LastCreated     string
	LastRented      string
	Paused          bool
	Initialized     bool
}
