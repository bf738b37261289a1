package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/ratelimit"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest         ErrorCode = "bad_request"
	ErrCodeNotFound           ErrorCode = "not_found"
	ErrCodeValidationFailed   ErrorCode = "validation_failed"
	ErrCodeNameReserved       ErrorCode = "name_reserved"
	ErrCodeUnauthorized       ErrorCode = "unauthorized"
	ErrCodeForbidden          ErrorCode = "forbidden"
	ErrCodePaymentRequired    ErrorCode = "insufficient_payment"
	ErrCodePermissionDenied   ErrorCode = "permission_denied"
	ErrCodeConflict           ErrorCode = "conflict"
	ErrCodePriceOverflow      ErrorCode = "price_overflow"
	ErrCodeRateLimited        ErrorCode = "rate_limited"
	ErrCodeServiceUnavailable ErrorCode = "service_unavailable"

	// Server errors (5xx)
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeServiceError  ErrorCode = "service_error"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

func newAPIError(code ErrorCode, message string, details ...string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeBadRequest, message, details...)
}

func NewNotFoundError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeNotFound, message, details...)
}

func NewValidationError(details ...string) *APIError {
	return newAPIError(ErrCodeValidationFailed, "Validation failed", details...)
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeUnauthorized, message, details...)
}

func NewForbiddenError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeForbidden, message, details...)
}

func NewRateLimitedError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeRateLimited, message, details...)
}

func NewServiceUnavailableError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeServiceUnavailable, message, details...)
}

func NewInternalError(message string, details ...string) *APIError {
	return newAPIError(ErrCodeInternalError, message, details...)
}

// mapping is checked in order, so wrapped errors come before what they wrap
var mapping = []struct {
	target  error
	status  int
	code    ErrorCode
	message string
}{
	{domain.ErrNameReserved, http.StatusBadRequest, ErrCodeNameReserved, "Name is reserved"},
	{domain.ErrValidation, http.StatusBadRequest, ErrCodeValidationFailed, "Validation failed"},
	{domain.ErrInsufficientPayment, http.StatusPaymentRequired, ErrCodePaymentRequired, "Insufficient payment"},
	{domain.ErrSelfRevealDenied, http.StatusForbidden, ErrCodeForbidden, "Holder cannot reveal own field"},
	{domain.ErrUnauthorized, http.StatusForbidden, ErrCodeForbidden, "Caller is not authorized"},
	{domain.ErrPermissionDenied, http.StatusForbidden, ErrCodePermissionDenied, "No current reveal grant"},
	{domain.ErrNameNotFound, http.StatusNotFound, ErrCodeNotFound, "Name not found"},
	{domain.ErrTransferFailed, http.StatusConflict, ErrCodeConflict, "Transfer failed"},
	{domain.ErrReentrantCall, http.StatusConflict, ErrCodeConflict, "Reentrant call"},
	{domain.ErrAlreadyInitialized, http.StatusConflict, ErrCodeConflict, "Registry is already initialized"},
	{domain.ErrNotYetInitialized, http.StatusConflict, ErrCodeConflict, "Registry is not yet initialized"},
	{domain.ErrPaused, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Registry is paused"},
	{ratelimit.ErrClosed, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Rate limiter is unavailable"},
	{domain.ErrPriceOverflow, http.StatusUnprocessableEntity, ErrCodePriceOverflow, "Price overflow"},
}

// FromError maps a registry error to its HTTP status and API error.
// Unknown errors map to 500 without leaking their text.
func FromError(err error) (int, *APIError) {
	for _, m := range mapping {
		if stderrors.Is(err, m.target) {
			return m.status, newAPIError(m.code, m.message, err.Error())
		}
	}
	return http.StatusInternalServerError, NewInternalError("Internal server error")
}
