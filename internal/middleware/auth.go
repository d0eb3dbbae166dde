// Package middleware holds the gin middleware of the API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/seller-console/internal/auth"
	"github.com/01moynul/seller-console/internal/models"
)

// Context keys set by AuthMiddleware.
const (
	SellerIDKey = "sellerID"
	RoleKey     = "role"
)

// AuthMiddleware rejects requests without a valid bearer token and stores
// the seller id and role on the context.
func AuthMiddleware(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. --- Validate Token ---
		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Success ---
		c.Set(SellerIDKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// ReviewerMiddleware must run after AuthMiddleware.
func ReviewerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleKey) != models.RoleReviewer {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: reviewer role required"})
			return
		}
		c.Next()
	}
}

// SellerID returns the authenticated seller id.
func SellerID(c *gin.Context) string {
	return c.GetString(SellerIDKey)
}
