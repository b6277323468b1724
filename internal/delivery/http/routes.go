package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/forkcast/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log *slog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	// Routes below share one per-IP budget
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc { return []gin.HandlerFunc{h} }
	if cfg.RateLimit.PerMinute > 0 {
		limiter := NewIPRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, log)
		limited = func(h gin.HandlerFunc) []gin.HandlerFunc { return []gin.HandlerFunc{limiter.RateLimit(), h} }
	}

	router.GET("/search", limited(handler.Search)...)
	router.POST("/search", limited(handler.Search)...)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/search", limited(handler.Search)...)
		v1.POST("/search", limited(handler.Search)...)
		v1.GET("/restaurants", limited(handler.ListRestaurants)...)
		v1.POST("/menus/parse", limited(handler.ParseMenu)...)
	}

	return router
}
