package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/bastiondns/bastiondns/internal/api/handlers"
	"github.com/bastiondns/bastiondns/internal/api/middleware"
	"github.com/bastiondns/bastiondns/internal/config"

	_ "github.com/bastiondns/bastiondns/internal/api/docs" // swagger docs
)

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	// Swagger UI at /swagger/*
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	// Optional API key protection.
	if cfg != nil && cfg.API.APIKey != "" {
		api.Use(middleware.RequireAPIKey(cfg.API.APIKey))
	}

	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)

	api.GET("/zones", h.ListZones)
	api.POST("/zones", h.CreateZone)
	api.GET("/zones/:origin", h.GetZone)
	api.PUT("/zones/:origin", h.UpdateZone)
	api.DELETE("/zones/:origin", h.DeleteZone)

	api.GET("/resolve", h.Resolve)
}
