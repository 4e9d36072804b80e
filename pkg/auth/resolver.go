package auth

import (
	"fmt"
	"net/http"
	"strings"
)

const apiKeyHeader = "X-API-Key"

// RequestResolver adapts an Authenticator to per-request identity
// resolution for the session router: it extracts the credential from the
// request and returns the resolved user id.
type RequestResolver struct {
	authenticator Authenticator
}

// NewRequestResolver creates a resolver over the authenticator.
func NewRequestResolver(authenticator Authenticator) *RequestResolver {
	return &RequestResolver{authenticator: authenticator}
}

// Resolve authenticates the request and returns the owning user id.
func (r *RequestResolver) Resolve(req *http.Request) (string, error) {
	uc, err := r.authenticator.Authenticate(req.Context(), ExtractCredential(req))
	if err != nil {
		return "", fmt.Errorf("resolving request identity: %w", err)
	}
	return uc.UserID, nil
}

// ExtractCredential pulls the bearer token or API key off the request.
func ExtractCredential(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if after, ok := strings.CutPrefix(authz, "Bearer "); ok {
			return after
		}
		return authz
	}
	return r.Header.Get(apiKeyHeader)
}
