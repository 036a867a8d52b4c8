package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TenantIDKey is the context key for the accounting office's tenant ID
	TenantIDKey contextKey = "tenant_id"
	// UserIDKey is the context key for the acting accountant's user ID
	UserIDKey contextKey = "user_id"
)

// WithContext attaches a logger to the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the attached logger, or a nop logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

func attach(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	enriched := logger.With(zap.String(string(key), value))
	return WithContext(ctx, enriched), enriched
}

// WithRequestID stores the request ID and returns an enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return attach(ctx, logger, RequestIDKey, requestID)
}

// WithTenantID stores the tenant ID and returns an enriched logger
func WithTenantID(ctx context.Context, logger *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	return attach(ctx, logger, TenantIDKey, tenantID)
}

// WithUserID stores the user ID and returns an enriched logger
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return attach(ctx, logger, UserIDKey, userID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetTenantID retrieves the tenant ID from context
func GetTenantID(ctx context.Context) string {
	return stringValue(ctx, TenantIDKey)
}

// GetUserID retrieves the user ID from context
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

// WithTraceContext adds trace_id and span_id from the active span, when
// one is recording on the context
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return logger
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// ContextLogger stamps every entry with the correlation fields present
// on its context: trace/span ids, request id, tenant id, user id.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L builds a ContextLogger around the context's attached logger.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger builds a ContextLogger around an explicit logger
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

func (cl *ContextLogger) enriched() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	l = WithTraceContext(cl.ctx, l)

	for _, key := range []contextKey{RequestIDKey, TenantIDKey, UserIDKey} {
		if v := stringValue(cl.ctx, key); v != "" {
			l = l.With(zap.String(string(key), v))
		}
	}
	return l
}

// With creates a child ContextLogger carrying extra fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

// Debug logs at debug level with correlation fields
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enriched().Debug(msg, fields...)
}

// Info logs at info level with correlation fields
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enriched().Info(msg, fields...)
}

// Warn logs at warn level with correlation fields
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enriched().Warn(msg, fields...)
}

// Error logs at error level with correlation fields
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enriched().Error(msg, fields...)
}

// Zap returns the underlying logger with correlation fields applied
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enriched()
}
