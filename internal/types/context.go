package types

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request ID previously stored with WithRequestID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ResolveRequestID returns the correlation id for the current invocation.
// Lookup order: an explicit WithRequestID value, then the Lambda runtime's
// AwsRequestID. When neither is present (local runs) a random UUID is
// generated so CloudFront still receives a unique caller reference.
func ResolveRequestID(ctx context.Context) string {
	if id := GetRequestID(ctx); id != "" {
		return id
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.New().String()
}
