package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// BearerConfig configures the JWT bearer authenticator.
type BearerConfig struct {
	// Secret is the HMAC signing secret for token verification.
	Secret string `yaml:"secret"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `yaml:"issuer"`
}

// BearerAuthenticator verifies HMAC-signed JWT bearer tokens.
type BearerAuthenticator struct {
	secret []byte
	issuer string
}

// NewBearerAuthenticator creates a JWT bearer authenticator.
func NewBearerAuthenticator(cfg BearerConfig) *BearerAuthenticator {
	return &BearerAuthenticator{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// Authenticate parses and verifies the token and extracts the identity.
func (a *BearerAuthenticator) Authenticate(_ context.Context, credential string) (*UserContext, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: no bearer token", ErrInvalidCredential)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.Parse(credential, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidCredential)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidCredential)
	}

	uc := &UserContext{
		UserID:   sub,
		Claims:   claims,
		AuthType: "jwt",
	}
	if email, ok := claims["email"].(string); ok {
		uc.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		uc.Name = name
	}
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				uc.Roles = append(uc.Roles, s)
			}
		}
	}
	return uc, nil
}

// Verify interface compliance.
var _ Authenticator = (*BearerAuthenticator)(nil)
