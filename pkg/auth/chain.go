package auth

import "context"

// ChainedAuthenticator tries multiple authenticators in order and
// returns the first success.
type ChainedAuthenticator struct {
	authenticators []Authenticator
	allowAnonymous bool
}

// ChainedAuthConfig configures the chained authenticator.
type ChainedAuthConfig struct {
	AllowAnonymous bool `yaml:"allow_anonymous"`
}

// NewChainedAuthenticator creates a new chained authenticator.
func NewChainedAuthenticator(cfg ChainedAuthConfig, authenticators ...Authenticator) *ChainedAuthenticator {
	return &ChainedAuthenticator{
		authenticators: authenticators,
		allowAnonymous: cfg.AllowAnonymous,
	}
}

// Authenticate tries each authenticator in order. With anonymous access
// enabled, a credential no authenticator accepts yields the anonymous
// identity instead of an error.
func (c *ChainedAuthenticator) Authenticate(ctx context.Context, credential string) (*UserContext, error) {
	var lastErr error

	for _, a := range c.authenticators {
		uc, err := a.Authenticate(ctx, credential)
		if err == nil && uc != nil {
			return uc, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if c.allowAnonymous {
		return &UserContext{
			UserID:   "anonymous",
			Claims:   make(map[string]any),
			AuthType: "anonymous",
		}, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrInvalidCredential
}

// Verify interface compliance.
var _ Authenticator = (*ChainedAuthenticator)(nil)
