package middleware

import (
	"net/http"
	"strings"

	"housing-data-go/pkg/db"
	"housing-data-go/pkg/models"

	"github.com/gin-gonic/gin"
)

// RequireAuth authenticates the request by API key and stores the user in
// the context. Error payloads use the "detail" key throughout the API.
func RequireAuth(db *db.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing authorization header"})
			c.Abort()
			return
		}

		// Accept "Bearer <key>" or a bare key
		apiKey := strings.TrimPrefix(authHeader, "Bearer ")
		apiKey = strings.TrimSpace(apiKey)

		user, err := db.GetUserByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid API key"})
			c.Abort()
			return
		}
		if !user.IsApproved {
			c.JSON(http.StatusForbidden, gin.H{"detail": "account pending approval"})
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

// RequireAdmin gates an endpoint to admin users. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
