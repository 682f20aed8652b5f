package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type loggerKey struct{}

type fieldsKey struct{}

// requestFields are the identifiers every log line of a request carries
type requestFields struct {
	RequestID string
	TenantID  string
	UserID    string
}

// WithContext attaches a logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}

func fieldsFrom(ctx context.Context) requestFields {
	f, _ := ctx.Value(fieldsKey{}).(requestFields)
	return f
}

// WithRequestID records the request id on ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	f := fieldsFrom(ctx)
	f.RequestID = requestID
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithIdentity records the acting tenant and user on ctx
func WithIdentity(ctx context.Context, tenantID, userID string) context.Context {
	f := fieldsFrom(ctx)
	f.TenantID = tenantID
	f.UserID = userID
	return context.WithValue(ctx, fieldsKey{}, f)
}

// RequestID returns the request id recorded on ctx
func RequestID(ctx context.Context) string {
	return fieldsFrom(ctx).RequestID
}

// TenantID returns the tenant id recorded on ctx
func TenantID(ctx context.Context) string {
	return fieldsFrom(ctx).TenantID
}

// TraceID returns the active span's trace id, or "" without a valid span
func TraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// Fields returns the correlation fields for ctx: trace and span ids plus
// request, tenant and user ids when present.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	f := fieldsFrom(ctx)
	if f.RequestID != "" {
		fields = append(fields, zap.String("request_id", f.RequestID))
	}
	if f.TenantID != "" {
		fields = append(fields, zap.String("tenant_id", f.TenantID))
	}
	if f.UserID != "" {
		fields = append(fields, zap.String("user_id", f.UserID))
	}
	return fields
}

// L returns the context's logger enriched with its correlation fields.
//
//	logger.L(ctx).Info("balance adjusted", zap.String("item", ref.String()))
func L(ctx context.Context) *zap.Logger {
	return For(ctx, FromContext(ctx))
}

// For enriches base with the correlation fields of ctx
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	fields := Fields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
