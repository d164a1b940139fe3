package auth

import "context"

// Caller describes how a request was authenticated
type Caller struct {
	AuthType   string // "api_key" or "anonymous"
	RemoteAddr string
}

type contextKey string

const callerContextKey contextKey = "caller"

// WithCaller adds caller information to the context
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// FromContext extracts caller information from the context
func FromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(callerContextKey).(*Caller)
	return caller, ok
}
