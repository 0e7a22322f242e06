package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecoscan/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/", handler.Root)

	api := router.Group("/api")
	{
		api.GET("/health", handler.HealthCheck)
		api.POST("/scan", handler.ScanClothing)
		api.GET("/scan/:scanId", handler.GetScan)
		api.DELETE("/scan/:scanId", handler.DeleteScan)
		api.GET("/history/:userId", handler.GetHistory)
		api.GET("/stats/:userId", handler.GetStats)
		api.GET("/recommendations", handler.GetRecommendations)
	}

	return router
}
