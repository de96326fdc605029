package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const AdminAPIKeyHeader = "X-Admin-API-Key"

// RequireAdminAPIKey guards administrative routes. The key is read from X-Admin-API-Key or a
// bearer Authorization header. An empty configured key rejects every request.
func RequireAdminAPIKey(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(AdminAPIKeyHeader)
		if provided == "" {
			provided = bearerToken(c.GetHeader("Authorization"))
		}

		if apiKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
