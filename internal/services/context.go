package services

import "context"

type contextKey int

const (
	jobIDKey contextKey = iota
	requestIDKey
	fileIDKey
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithJobID annotates context with the transform job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	return lookup(ctx, jobIDKey)
}

// WithRequestID annotates context with the HTTP correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return lookup(ctx, requestIDKey)
}

// WithFileID annotates context with the uploaded file a caption run reads.
func WithFileID(ctx context.Context, id string) context.Context {
	return withValue(ctx, fileIDKey, id)
}

// FileIDFromContext extracts the upload identifier if present.
func FileIDFromContext(ctx context.Context) (string, bool) {
	return lookup(ctx, fileIDKey)
}
