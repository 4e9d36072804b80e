// Package auth provides authentication for the gateway. The session
// layer consumes it only through the Authenticator interface and the
// resolved user id.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidCredential indicates the presented credential is missing,
// malformed, expired, or unknown.
var ErrInvalidCredential = errors.New("auth: invalid or expired credential")

// UserContext holds authenticated user information.
type UserContext struct {
	UserID   string         `json:"user_id"`
	Email    string         `json:"email,omitempty"`
	Name     string         `json:"name,omitempty"`
	Roles    []string       `json:"roles,omitempty"`
	Claims   map[string]any `json:"claims,omitempty"`
	AuthType string         `json:"auth_type"` // "jwt", "apikey", "anonymous"
}

// HasRole checks if the user has a specific role.
func (uc *UserContext) HasRole(role string) bool {
	for _, r := range uc.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authenticator validates a credential and returns the authenticated
// identity.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*UserContext, error)
}

// contextKey is a private type for context keys.
type contextKey int

const userContextKey contextKey = iota

// WithUserContext adds user context to the context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// GetUserContext retrieves user context from the context, or nil.
func GetUserContext(ctx context.Context) *UserContext {
	if uc, ok := ctx.Value(userContextKey).(*UserContext); ok {
		return uc
	}
	return nil
}
