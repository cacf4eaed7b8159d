package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/qrlink/ports"
)

// AuthMiddleware creates middleware that validates session access tokens
func AuthMiddleware(sessions ports.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		// Check if the Authorization header is present and in correct format
		if len(auth) < 8 || auth[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		// Extract the token
		token := auth[7:]

		// Validate the token
		session, err := sessions.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// Set the authenticated identity in the context
		c.Set("identity", session.Identity)

		c.Next()
	}
}
