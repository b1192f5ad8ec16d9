// Package middleware holds gin middleware shared across the HTTP surface.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sacredflow/backend-go/pkg/logger"
)

const (
	headerAPIKey = "X-API-Key"
	headerAuth   = "Authorization"
	bearerPrefix = "Bearer "
)

// APIKeyAuth guards the management surface with static API keys. Keys come
// from either the X-API-Key header or an Authorization bearer token. With no
// keys configured every request is rejected.
type APIKeyAuth struct {
	apiKeys []string
}

// NewAPIKeyAuth creates the middleware from the configured key list. Empty
// entries are dropped.
func NewAPIKeyAuth(apiKeys []string) *APIKeyAuth {
	keys := make([]string, 0, len(apiKeys))
	for _, key := range apiKeys {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return &APIKeyAuth{apiKeys: keys}
}

// Middleware returns the gin handler enforcing the key check.
func (a *APIKeyAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := extractAPIKey(c)

		if !a.isValidAPIKey(apiKey) {
			logger.Log.Warn("unauthorized request",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("remote_addr", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Next()
	}
}

func extractAPIKey(c *gin.Context) string {
	if apiKey := c.GetHeader(headerAPIKey); apiKey != "" {
		return apiKey
	}

	authHeader := c.GetHeader(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}

	return ""
}

// isValidAPIKey compares against every configured key in constant time.
func (a *APIKeyAuth) isValidAPIKey(providedKey string) bool {
	if providedKey == "" || len(a.apiKeys) == 0 {
		return false
	}

	valid := false
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(key)) == 1 {
			valid = true
		}
	}
	return valid
}
