// Package requestctx carries correlation values from the transport layer
// and background jobs down into domain services.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	jobRunKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithJobRun marks ctx as belonging to a scheduled job run.
func WithJobRun(ctx context.Context, jobType, runID string) context.Context {
	return context.WithValue(ctx, jobRunKey, jobType+":"+runID)
}

func JobRun(ctx context.Context) string {
	if value, ok := ctx.Value(jobRunKey).(string); ok {
		return value
	}
	return ""
}

// LogFields returns the correlation fields present on ctx.
func LogFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("requestId", id))
	}
	if run := JobRun(ctx); run != "" {
		fields = append(fields, zap.String("jobRun", run))
	}
	return fields
}
