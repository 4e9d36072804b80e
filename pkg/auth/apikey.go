package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// APIKey represents one configured API key. Only the bcrypt hash of the
// key is held in configuration.
type APIKey struct {
	Name  string   `yaml:"name"`
	Hash  string   `yaml:"hash"`
	Roles []string `yaml:"roles"`
}

// APIKeyConfig holds API key configuration.
type APIKeyConfig struct {
	Keys []APIKey `yaml:"keys"`
}

// APIKeyAuthenticator authenticates using bcrypt-hashed API keys.
type APIKeyAuthenticator struct {
	keys []APIKey
}

// NewAPIKeyAuthenticator creates a new API key authenticator.
func NewAPIKeyAuthenticator(cfg APIKeyConfig) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{keys: cfg.Keys}
}

// Authenticate compares the presented key against every configured hash.
// bcrypt comparison makes key lookup insensitive to match position.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, credential string) (*UserContext, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: no API key", ErrInvalidCredential)
	}

	for i := range a.keys {
		key := &a.keys[i]
		if bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(credential)) == nil {
			return &UserContext{
				UserID:   "apikey:" + key.Name,
				Roles:    key.Roles,
				Claims:   make(map[string]any),
				AuthType: "apikey",
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown API key", ErrInvalidCredential)
}

// HashKey produces a bcrypt hash suitable for APIKey.Hash.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing api key: %w", err)
	}
	return string(hash), nil
}

// Verify interface compliance.
var _ Authenticator = (*APIKeyAuthenticator)(nil)
