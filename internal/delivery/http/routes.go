package http

import (
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/barease/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// Local development serves published images from the fixture directory
	if cfg.Storage.Type == "file" {
		router.Static("/images", filepath.Join(cfg.Storage.FixtureDir, "images", "public"))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		// Public endpoints
		v1.GET("/menu", handler.ListMenu)
		v1.GET("/menu/makers", handler.ListMakers)
		v1.POST("/recommend", handler.Recommend)

		// Signed endpoints (spreadsheet script, approval webhook, admin)
		signed := v1.Group("")
		signed.Use(SignatureMiddleware(cfg.Webhook.Secret, cfg.Webhook.MaxSkew))
		{
			signed.POST("/sync", handler.Sync)
			signed.POST("/webhook", handler.Webhook)
			signed.GET("/ai/suggestions", handler.ListSuggestions)
			signed.POST("/menu/regenerate", handler.Regenerate)
		}
	}

	return router
}
