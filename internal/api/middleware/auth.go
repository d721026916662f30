package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wardenhq/warden/internal/services"
)

const IsAdminKey = "isAdmin"

// Authenticate extracts and verifies a bearer token when one is present and
// records the admin capability in the request context. It never aborts:
// anonymous requests simply carry no capability. The WAF middleware reads
// the capability for its admin bypass.
func Authenticate(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if admin, err := auth.VerifyToken(token); err == nil && admin {
				c.Set(IsAdminKey, true)
			}
		}
		c.Next()
	}
}

// RequireAdmin guards operator endpoints. Authenticate must run earlier in
// the chain.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(IsAdminKey) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "administrator token required"})
			return
		}
		c.Next()
	}
}
