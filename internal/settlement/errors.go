package settlement

import "errors"

var (
	// ErrInsufficientBalance is returned when the sender cannot cover a transfer
	ErrInsufficientBalance = errors.New("settlement: insufficient balance")

	// ErrNegativeAmount is returned for transfers of negative amounts
	ErrNegativeAmount = errors.New("settlement: negative amount")

	// ErrOverAllocated is returned when payees sum to more than the required amount
	ErrOverAllocated = errors.New("settlement: payees exceed required amount")

	// ErrRecipientRejected is returned when a recipient hook refuses a credit
	ErrRecipientRejected = errors.New("settlement: recipient rejected transfer")
)
