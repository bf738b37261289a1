package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/ratelimit"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"validation", fmt.Errorf("%w: url too long", domain.ErrValidation), http.StatusBadRequest, ErrCodeValidationFailed},
		{"reserved", fmt.Errorf("%w: \"admin\"", domain.ErrNameReserved), http.StatusBadRequest, ErrCodeNameReserved},
		{"payment", domain.ErrInsufficientPayment, http.StatusPaymentRequired, ErrCodePaymentRequired},
		{"unauthorized", domain.ErrUnauthorized, http.StatusForbidden, ErrCodeForbidden},
		{"self reveal", domain.ErrSelfRevealDenied, http.StatusForbidden, ErrCodeForbidden},
		{"permission", domain.ErrPermissionDenied, http.StatusForbidden, ErrCodePermissionDenied},
		{"not found", fmt.Errorf("%w: %q", domain.ErrNameNotFound, "alpha"), http.StatusNotFound, ErrCodeNotFound},
		{"transfer", fmt.Errorf("%w: rebate: %w", domain.ErrTransferFailed, errors.New("rejected")), http.StatusConflict, ErrCodeConflict},
		{"reentrant", domain.ErrReentrantCall, http.StatusConflict, ErrCodeConflict},
		{"already initialized", domain.ErrAlreadyInitialized, http.StatusConflict, ErrCodeConflict},
		{"not yet initialized", domain.ErrNotYetInitialized, http.StatusConflict, ErrCodeConflict},
		{"paused", domain.ErrPaused, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"limiter closed", ratelimit.ErrClosed, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"overflow", domain.ErrPriceOverflow, http.StatusUnprocessableEntity, ErrCodePriceOverflow},
		{"store failure", errors.New("failed to commit: connection refused"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestFromErrorHidesInternalDetails(t *testing.T) {
	_, apiErr := FromError(errors.New("pq: password authentication failed"))
	assert.Empty(t, apiErr.Details)

	_, apiErr = FromError(fmt.Errorf("%w: paid 1, price 2", domain.ErrInsufficientPayment))
	assert.Equal(t, "insufficient payment: paid 1, price 2", apiErr.Details)
}

func TestAPIErrorJSON(t *testing.T) {
	err := NewValidationError("names is required")
	assert.JSONEq(t, `{"code":"validation_failed","message":"Validation failed","details":"names is required"}`, err.Error())
}
