package middleware

import (
	"context"

	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling labels CPU samples taken while serving a request with its route,
// method and tenant, so Pyroscope can slice profiles by endpoint. Place it
// after TenantMiddleware to get the tenant label.
func Profiling(enabled bool, skipPaths ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if skipPath(c.Request.URL.Path, skipPaths) {
			c.Next()
			return
		}

		labels := map[string]string{
			telemetry.ProfilingLabelMethod: c.Request.Method,
			telemetry.ProfilingLabelRoute:  c.FullPath(),
			telemetry.ProfilingLabelTenant: GetTenantCode(c),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
