package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-name-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-name-registry/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondValidationError responds with a validation error. Errors that are
// already API errors are passed through unchanged.
func respondValidationError(c *gin.Context, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusBadRequest, apiErr)
		return
	}
	c.JSON(http.StatusBadRequest, apierrors.NewValidationError(err.Error()))
}

// respondServiceError maps a registry error to its HTTP response
func respondServiceError(c *gin.Context, err error, operation string) {
	status, apiErr := apierrors.FromError(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.ErrorCtx(c.Request.Context(), err, zap.String("operation", operation))
	} else {
		logger.DebugCtx(c.Request.Context(), "Registry operation rejected",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	c.JSON(status, apiErr)
}
