// Package mcpcontext carries gateway session identity across the HTTP /
// MCP protocol boundary. The session router sets the values on the
// request context; MCP middleware and tool handlers read them back.
package mcpcontext

import "context"

type contextKey int

const sessionIDKey contextKey = iota

// WithSessionID attaches the gateway session id to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionID retrieves the gateway session id, or empty if unset.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}
