package logger

import (
	"context"

	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
)

// WithContext stores logger as the request-scoped logger.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request-scoped logger, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID binds the request ID. L adds it to every entry.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func GetTenantID(ctx context.Context) string {
	if id, ok := tenancy.TenantID(ctx); ok {
		return id.String()
	}
	return ""
}

func GetUserID(ctx context.Context) string {
	if id := tenancy.UserID(ctx); id != uuid.Nil {
		return id.String()
	}
	return ""
}

// GetTraceID returns the active span's trace ID, or "" without a valid span.
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

func GetSpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// ContextFields lists the correlation IDs bound to ctx: trace and span,
// request, tenant and user. Unbound IDs are left out.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}
	add("request_id", GetRequestID(ctx))
	add("tenant_id", GetTenantID(ctx))
	add("user_id", GetUserID(ctx))
	return fields
}

// ContextLogger resolves ContextFields at each call, so IDs bound after the
// logger was taken still show up.
//
//	logger.L(ctx).Info("stock moved", zap.Int64("delta", d))
type ContextLogger struct {
	ctx context.Context
	log *zap.Logger
}

// L wraps the request-scoped logger stored in ctx.
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, log: FromContext(ctx)}
}

// WithLogger wraps log instead of the logger stored in ctx. A nil log discards.
func WithLogger(ctx context.Context, log *zap.Logger) *ContextLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, log: log}
}

func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, log: cl.log.With(fields...)}
}

// Zap returns a plain logger with the context fields already attached.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.log.With(ContextFields(cl.ctx)...)
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.Zap().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.Zap().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.Zap().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.Zap().Error(msg, fields...) }
