package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/qrlink/ports"
	"github.com/layer-3/qrlink/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(pairingService *service.PairingService, sessions ports.Sessions) *gin.Engine {
	router := gin.Default()

	// Create handlers
	handlers := NewPairingHandlers(pairingService)

	// Pairing routes; initiate, poll and redeem are guest-accessible
	// since the browser is unauthenticated until the handoff completes
	pairing := router.Group("/pairing")
	{
		pairing.POST("/initiate", handlers.Initiate)
		pairing.POST("/poll", handlers.Poll)
		pairing.POST("/redeem", handlers.Redeem)
		pairing.POST("/confirm", AuthMiddleware(sessions), handlers.Confirm)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(sessions))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
