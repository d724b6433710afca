package middleware

import (
	"net/http"
	"strings"

	"github.com/budgetke/budgetke-api/internal/auth"
	"github.com/gin-gonic/gin"
)

// AdminAuth guards the back-office routes. It expects a Bearer token
// minted by the admin login handler.
func AdminAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be 'Bearer <token>'"})
			return
		}

		email, err := auth.ValidateToken(jwtSecret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("adminEmail", email)
		c.Next()
	}
}
