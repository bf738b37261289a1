package dto

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/feral-file/ff-name-registry/internal/api/shared/constants"
	apierrors "github.com/feral-file/ff-name-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-name-registry/internal/lease"
)

// Amount is a decimal or 0x-prefixed hex amount in the smallest unit
type Amount = math.HexOrDecimal256

func validateValue(v *Amount) error {
	if v == nil {
		return apierrors.NewValidationError("value is required")
	}
	if (*big.Int)(v).Sign() < 0 {
		return apierrors.NewValidationError("value must not be negative")
	}
	return nil
}

func toBig(v *Amount) *big.Int {
	return new(big.Int).Set((*big.Int)(v))
}

// parseAddress parses a hex address that must not be the zero address
func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, apierrors.NewValidationError(fmt.Sprintf("%s must be a hex address", field))
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, apierrors.NewValidationError(fmt.Sprintf("%s must not be the zero address", field))
	}
	return addr, nil
}

// ParseAddress parses an address path or query parameter
func ParseAddress(s string) (common.Address, error) {
	return parseAddress("address", s)
}

// PaymentRequest carries the declared payment of a paid operation
type PaymentRequest struct {
	Value *Amount `json:"value"`
}

// Validate validates the request body
func (r *PaymentRequest) Validate() error {
	return validateValue(r.Value)
}

// Payment returns the declared payment
func (r *PaymentRequest) Payment() *big.Int {
	return toBig(r.Value)
}

// AcquireRequest represents the request body for acquiring a name
type AcquireRequest struct {
	PaymentRequest
	URL      string `json:"url"`
	Telegram string `json:"telegram"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// ToLease converts the body to the registry request for name.
// Length limits are enforced by the registry.
func (r *AcquireRequest) ToLease(name string) lease.AcquireRequest {
	return lease.AcquireRequest{
		Name:     name,
		URL:      r.URL,
		Telegram: r.Telegram,
		Email:    r.Email,
		Phone:    r.Phone,
	}
}

// UpdateURLRequest represents the request body for updating the presented URL
type UpdateURLRequest struct {
	PaymentRequest
	URL string `json:"url"`
}

// ReactRequest represents the request body for recording a reaction
type ReactRequest struct {
	PaymentRequest
	Reaction string `json:"reaction"`
}

// Validate validates the request body
func (r *ReactRequest) Validate() error {
	if strings.TrimSpace(r.Reaction) == "" {
		return apierrors.NewValidationError("reaction is required")
	}
	return r.PaymentRequest.Validate()
}

// UpdateContactRequest represents the request body for overwriting private fields.
// Omitted fields are left unchanged.
type UpdateContactRequest struct {
	PaymentRequest
	Telegram *string `json:"telegram"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

// Validate validates the request body
func (r *UpdateContactRequest) Validate() error {
	if r.Telegram == nil && r.Email == nil && r.Phone == nil {
		return apierrors.NewValidationError("at least one of telegram, email or phone is required")
	}
	return r.PaymentRequest.Validate()
}

// ToLease converts the body to the registry update
func (r *UpdateContactRequest) ToLease() lease.ContactUpdate {
	return lease.ContactUpdate{
		Telegram: r.Telegram,
		Email:    r.Email,
		Phone:    r.Phone,
	}
}

// SetEconomicsRequest represents the request body for changing the rental economics.
// Omitted fields are left unchanged.
type SetEconomicsRequest struct {
	BaseRentalPrice *Amount `json:"base_rental_price"`
	PriceMultiplier uint64  `json:"price_multiplier"`
	RentalPeriod    string  `json:"rental_period"`
}

// ToLease validates the body and converts it to the registry update
func (r *SetEconomicsRequest) ToLease() (lease.EconomicsUpdate, error) {
	var update lease.EconomicsUpdate
	if r.BaseRentalPrice != nil {
		if err := validateValue(r.BaseRentalPrice); err != nil {
			return update, apierrors.NewValidationError("base_rental_price must not be negative")
		}
		update.BaseRentalPrice = toBig(r.BaseRentalPrice)
	}
	update.PriceMultiplier = r.PriceMultiplier
	if r.RentalPeriod != "" {
		d, err := time.ParseDuration(r.RentalPeriod)
		if err != nil || d <= 0 {
			return update, apierrors.NewValidationError("rental_period must be a positive duration")
		}
		update.RentalPeriod = d
	}
	if update.BaseRentalPrice == nil && update.PriceMultiplier == 0 && update.RentalPeriod == 0 {
		return update, apierrors.NewValidationError("at least one setting is required")
	}
	return update, nil
}

// SetTreasuryRequest represents the request body for changing the treasury account
type SetTreasuryRequest struct {
	Address string `json:"address"`
}

// Parse validates the body and returns the treasury address
func (r *SetTreasuryRequest) Parse() (common.Address, error) {
	return parseAddress("address", r.Address)
}

// SeedNamesRequest represents the request body for seeding names
type SeedNamesRequest struct {
	Names []string `json:"names"`
}

// Validate validates the request body
func (r *SeedNamesRequest) Validate() error {
	if len(r.Names) == 0 {
		return apierrors.NewValidationError("names is required")
	}
	if len(r.Names) > constants.MAX_SEED_NAMES {
		return apierrors.NewValidationError(fmt.Sprintf("maximum %d names allowed", constants.MAX_SEED_NAMES))
	}
	return nil
}

// DepositRequest represents the request body for crediting a vault account
type DepositRequest struct {
	PaymentRequest
	Account string `json:"account"`
}

// Parse validates the body and returns the account and amount
func (r *DepositRequest) Parse() (common.Address, *big.Int, error) {
	account, err := parseAddress("account", r.Account)
	if err != nil {
		return common.Address{}, nil, err
	}
	if err := r.PaymentRequest.Validate(); err != nil {
		return common.Address{}, nil, err
	}
	return account, r.Payment(), nil
}
