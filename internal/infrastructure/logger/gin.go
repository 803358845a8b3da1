package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// gin context key the request ID middleware writes
const ginRequestIDKey = "request_id"

// GinMiddleware binds a request-scoped logger and the request ID into the
// request context, then writes one access log entry per request. 5xx
// responses log at error and 4xx at warn.
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		reqLog := base.With(zap.String("method", req.Method), zap.String("path", req.URL.Path))
		ctx := WithContext(req.Context(), reqLog)
		if id := c.GetString(ginRequestIDKey); id != "" {
			ctx = WithRequestID(ctx, id)
		}
		c.Request = req.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if q := req.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if errs := c.Errors.Errors(); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs))
		}

		// downstream middleware rebinds c.Request, so read the tenant from there
		log := WithLogger(c.Request.Context(), reqLog)
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP Request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}
	}
}

// Recovery turns a panic into a 500 with the standard error envelope.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			base.Error("Panic recovered",
				zap.String("request_id", c.GetString(ginRequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   gin.H{"code": "INTERNAL_ERROR", "message": "Internal server error"},
			})
		}()
		c.Next()
	}
}
