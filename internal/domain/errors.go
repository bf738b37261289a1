package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for oversized inputs, malformed pagination bounds
	// and unknown reaction or field categories
	ErrValidation = errors.New("validation error")

	// ErrNameReserved is returned when the public attempts to acquire a reserved name
	ErrNameReserved = fmt.Errorf("%w: name is reserved", ErrValidation)

	// ErrInsufficientPayment is returned when the declared payment is below the requirement
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrUnauthorized is returned when the caller lacks the required relationship to the name
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSelfRevealDenied is returned when the holder requests a reveal of their own field
	ErrSelfRevealDenied = fmt.Errorf("%w: holder cannot reveal own field", ErrUnauthorized)

	// ErrPermissionDenied is returned when a private field is read without a current grant
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNameNotFound is returned when the name has no holder
	ErrNameNotFound = errors.New("name not found")

	// ErrTransferFailed is returned when an outbound value transfer did not complete
	ErrTransferFailed = errors.New("transfer failed")

	// ErrReentrantCall is returned for a call made from inside the operation in flight,
	// or when the registry lock is not acquired within the lock wait
	ErrReentrantCall = errors.New("reentrant call")

	// ErrAlreadyInitialized is returned when seeding is attempted after it was finalized
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrNotYetInitialized is returned when a public operation runs before seeding is finalized
	ErrNotYetInitialized = errors.New("not yet initialized")

	// ErrPaused is returned by mutating operations while the registry is paused
	ErrPaused = errors.New("registry is paused")

	// ErrPriceOverflow is returned when an escalated price does not fit in 256 bits
	ErrPriceOverflow = errors.New("price overflow")
)

var (
	// ErrTokenAlreadyExists is returned when attempting to mint a token that already exists
	ErrTokenAlreadyExists = errors.New("token already exists")

	// ErrTokenNotFound is returned when a token is not found
	ErrTokenNotFound = errors.New("token not found")
)
