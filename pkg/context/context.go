// Package context carries per-request identity through the call chain: the
// request id assigned at the edge, the operator acting on a review, and the
// scrape source a listing batch came from.
package context

import "context"

type ContextKey string

const (
	RequestIDKey ContextKey = "X-Request-Id"
	UserIDKey    ContextKey = "X-User-Id"
	SourceIDKey  ContextKey = "X-Source-Id"
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	return getString(ctx, UserIDKey)
}

func SetSourceID(ctx context.Context, sourceID string) context.Context {
	return context.WithValue(ctx, SourceIDKey, sourceID)
}

func GetSourceID(ctx context.Context) string {
	return getString(ctx, SourceIDKey)
}

func getString(ctx context.Context, key ContextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}
