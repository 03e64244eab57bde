package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DevelopmentAuthMiddleware is a simple auth middleware for development
func DevelopmentAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = "00000000-0000-0000-0000-000000000001" // Valid UUID for dev
		}

		// Set both camelCase and snake_case for compatibility
		c.Set("userId", userID)
		c.Set("user_id", userID)
		c.Next()
	}
}

// HeaderAuthMiddleware reads identity headers forwarded by the auth gateway.
// Requests without a user identity are rejected.
func HeaderAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "User identity is required. Include X-User-ID header.",
				},
			})
			c.Abort()
			return
		}

		c.Set("userId", userID)
		c.Set("user_id", userID)
		if email := c.GetHeader("X-User-Email"); email != "" {
			c.Set("user_email", email)
		}
		c.Next()
	}
}
