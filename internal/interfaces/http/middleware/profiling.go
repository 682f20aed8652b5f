package middleware

import (
	"context"

	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingLabels tags the CPU samples of each request with its route, method
// and tenant. A disabled profiler makes it a pass-through. Place it after Identity.
func ProfilingLabels(enabled bool) gin.HandlerFunc {
	if !enabled {
		return passThrough
	}
	return func(c *gin.Context) {
		labels := map[string]string{
			"route":  routePattern(c),
			"method": c.Request.Method,
		}
		if tenantID, ok := GetTenantID(c); ok {
			labels["tenant_id"] = tenantID.String()
		}

		parent := c.Request.Context()
		telemetry.WithProfilingLabels(parent, labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
		c.Request = c.Request.WithContext(parent)
	}
}
