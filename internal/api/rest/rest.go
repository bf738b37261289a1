package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-name-registry/internal/api/middleware"
	"github.com/feral-file/ff-name-registry/internal/metrics"
	"github.com/feral-file/ff-name-registry/internal/ratelimit"
)

// RouteConfig holds what the routes need besides the handler
type RouteConfig struct {
	Auth *middleware.Authenticator
	// Limiter is optional; mutating routes are unlimited without it
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
}

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, cfg RouteConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	limit := func(group string) gin.HandlerFunc {
		if cfg.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(cfg.Limiter, cfg.Metrics, group)
	}
	auth := middleware.Auth(cfg.Auth)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public reads
		v1.GET("/names", handler.ListNames)
		v1.GET("/names/:name", handler.GetName)
		v1.HEAD("/names/:name", handler.NameExists)
		v1.GET("/names/:name/price", middleware.OptionalAuth(cfg.Auth), handler.GetPrice)
		v1.GET("/names/:name/neighbors", handler.GetNeighbors)
		v1.GET("/names/:name/history", handler.GetHistory)
		v1.GET("/accounts/:address/balance", handler.GetBalance)
		v1.GET("/stats", handler.GetStats)

		// Caller operations (requires JWT)
		v1.POST("/names/:name/acquire", auth, limit("acquire"), handler.Acquire)
		v1.PUT("/names/:name/url", auth, limit("engagement"), handler.UpdateURL)
		v1.POST("/names/:name/reactions", auth, limit("engagement"), handler.React)
		v1.PUT("/names/:name/contact", auth, limit("disclosure"), handler.UpdateContact)
		v1.POST("/names/:name/reveals/:field", auth, limit("disclosure"), handler.RequestReveal)
		v1.GET("/names/:name/fields/:field", auth, handler.ReadField)

		// Admin operations (requires API key and the owner's JWT)
		admin := v1.Group("/admin", middleware.APIKeyAuth(cfg.Auth), auth)
		{
			admin.POST("/withdraw", handler.Withdraw)
			admin.POST("/pause", handler.Pause)
			admin.POST("/unpause", handler.Unpause)
			admin.POST("/economics", handler.SetEconomics)
			admin.POST("/treasury", handler.SetTreasury)
			admin.POST("/seed", handler.SeedNames)
			admin.POST("/finalize", handler.FinalizeSeeding)
			admin.POST("/deposit", handler.Deposit)
		}
	}
}
