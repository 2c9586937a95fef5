package routes

import (
	"github.com/ProfiFlow/backend/internal/handlers"
	"github.com/ProfiFlow/backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the constructed handler set for route registration.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Reports *handlers.ReportHandler
	Users   *handlers.UserHandler
	Tracker *handlers.TrackerHandler
	WS      *handlers.WSHandler
}

// SetupRoutes wires all endpoints onto a new gin engine.
func SetupRoutes(h Handlers) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204) // This depends on the implementation of the frontend
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "ProfiFlow backend is running",
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.GET("/auth/yandex/login", h.Auth.Login)
		api.GET("/auth/yandex/callback", h.Auth.Callback)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		// Report endpoints
		protectedRoutes.POST("/reports", h.Reports.CreateReport)
		protectedRoutes.POST("/reports/team", h.Reports.CreateTeamReport)
		protectedRoutes.GET("/reports/sprints", h.Reports.ListSprints)
		// Profile and team endpoints
		protectedRoutes.GET("/me", h.Users.Me)
		protectedRoutes.GET("/users", h.Users.GetAllUsers)
		// Tracker selection endpoints
		protectedRoutes.GET("/trackers", h.Tracker.ListTrackers)
		protectedRoutes.PUT("/trackers/current", h.Tracker.SetCurrentTracker)
		// Realtime events
		protectedRoutes.GET("/ws", h.WS.Serve)
	}

	return ginRouter
}
