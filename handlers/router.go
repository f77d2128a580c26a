package handlers

import (
	"spaceclouds/analytics/middleware"

	"github.com/gin-gonic/gin"
)

// RouterConfig carries what the routes need besides the handlers.
type RouterConfig struct {
	Origin    string
	APIKey    string
	JWTSecret []byte
}

// NewRouter wires the page endpoints, which the display pages call
// unauthenticated, and the dashboard endpoints behind AuthRequired.
func NewRouter(cfg RouterConfig, analytics *AnalyticsHandlers, auth *AuthHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.Origin))

	api := r.Group("/api")
	{
		api.GET("/health", analytics.Health)

		// display pages
		api.POST("/signals", analytics.TrackSignal)
		api.POST("/events", analytics.LogEvent)

		api.POST("/login", auth.Login)
		api.POST("/logout", auth.Logout)

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(cfg.APIKey, cfg.JWTSecret))
		{
			protected.GET("/data", analytics.GetData)
			protected.GET("/export", analytics.ExportData)
			protected.DELETE("/data", analytics.ClearData)
		}
	}
	return r
}
