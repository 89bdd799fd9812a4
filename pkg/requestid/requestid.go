package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// Generate returns a new random request id.
func Generate() string {
	return uuid.NewString()
}

func ToContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// FromContext returns the request id stored in ctx or an empty string.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func FromContextPtr(ctx context.Context) *string {
	id := FromContext(ctx)
	if id == "" {
		return nil
	}
	return &id
}

func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
