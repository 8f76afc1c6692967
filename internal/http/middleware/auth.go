// README: Firebase ID-token auth middleware for the driver API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gavra/internal/infra"
)

// ContextUID is the gin context key carrying the verified Firebase UID.
const ContextUID = "uid"

// Auth verifies the Bearer ID token on every request. A nil verifier disables
// auth (local development).
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ContextUID, token.UID)
		c.Next()
	}
}
