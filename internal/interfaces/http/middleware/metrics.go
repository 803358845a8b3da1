package middleware

import (
	"time"

	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type httpMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	in := telemetry.NewInstruments(meter)
	m := &httpMetrics{
		requests: in.Counter("http_server_request_total", "Total number of HTTP requests", "{request}"),
		latency:  in.Seconds("http_server_request_duration_seconds", "HTTP request latency distribution in seconds", telemetry.HTTPDurationBuckets),
		inFlight: in.Gauge("http_server_active_requests", "Number of currently active HTTP requests", "{request}"),
	}
	return m, in.Err()
}

// HTTPMetrics records request count, latency and in-flight requests.
// Routes are recorded by pattern, never by raw path. A nil meter or an
// instrument setup failure yields a pass-through middleware.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.inFlight.Add(ctx, 1)

		c.Next()

		m.inFlight.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		base := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		counted := append(base, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))
		if tenantID := GetTenantID(c); tenantID != "" {
			counted = append(counted, telemetry.AttrTenantID.String(tenantID))
		}
		m.requests.Add(ctx, 1, metric.WithAttributes(counted...))
		telemetry.RecordSeconds(ctx, m.latency, time.Since(start), base...)
	}
}
