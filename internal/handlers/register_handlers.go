package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/SscSPs/finledger/internal/platform/config"
	"github.com/SscSPs/finledger/internal/platform/metrics"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	apiLimiter *limiter.Limiter,
) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	setupAPIV1Routes(r, cfg, services, apiLimiter)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	apiLimiter *limiter.Limiter,
) {
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))
	if apiLimiter != nil {
		// after auth so requests are limited per user
		v1.Use(middleware.RateLimit(apiLimiter))
	}

	registerAccountRoutes(v1, services.Account, services.Transaction)
	registerTransactionRoutes(v1, services.Transaction)
	registerPositionRoutes(v1, services.Position, cfg.PriceMaxAge)
	registerSyncRoutes(v1, services.Sync)
}
