package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-name-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/metrics"
	"github.com/feral-file/ff-name-registry/internal/ratelimit"
)

// RateLimit limits requests per caller, or per client IP for anonymous requests.
// It must run after the auth middleware so the caller is known.
func RateLimit(limiter ratelimit.Limiter, m *metrics.Metrics, group string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if caller := Caller(c); !domain.IsZeroAddress(caller) {
			key = "caller:" + caller.Hex()
		}

		decision, err := limiter.Allow(c.Request.Context(), group+":"+key)
		if err != nil {
			logger.ErrorCtx(c.Request.Context(), err, zap.String("group", group))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, apierrors.NewServiceUnavailableError("Rate limiter is unavailable"))
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			m.IncrementRateLimited(group)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierrors.NewRateLimitedError("Too many requests"))
			return
		}
		c.Next()
	}
}
