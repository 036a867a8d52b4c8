package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Keys for tenant information in gin.Context
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantMiddlewareConfig holds configuration for tenant extraction
type TenantMiddlewareConfig struct {
	// SkipPaths bypass tenant resolution (health checks, metrics)
	SkipPaths []string
}

// DefaultTenantConfig returns the default tenant middleware configuration
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready"},
	}
}

// TenantMiddleware requires a valid X-Tenant-ID header on every request.
// Each accounting office is one tenant; no request may touch data
// without naming whose it is.
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig returns tenant middleware with custom configuration
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		tenantID := c.GetHeader(TenantHeaderKey)
		if tenantID == "" {
			respondUnauthorized(c, "Tenant identification required")
			return
		}
		if _, err := uuid.Parse(tenantID); err != nil {
			respondUnauthorized(c, "Invalid tenant ID format")
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetTenantUUID retrieves the tenant ID from gin.Context
func GetTenantUUID(c *gin.Context) (uuid.UUID, error) {
	if tenantID, exists := c.Get(TenantIDKey); exists {
		if tid, ok := tenantID.(string); ok {
			return uuid.Parse(tid)
		}
	}
	return uuid.Nil, nil
}
