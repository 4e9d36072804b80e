package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestBearerAuthenticate(t *testing.T) {
	a := NewBearerAuthenticator(BearerConfig{Secret: testSecret})

	credential := signToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "user@example.com",
		"name":  "Test User",
		"roles": []any{"admin", "agent"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	uc, err := a.Authenticate(context.Background(), credential)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uc.UserID)
	assert.Equal(t, "user@example.com", uc.Email)
	assert.Equal(t, "jwt", uc.AuthType)
	assert.True(t, uc.HasRole("admin"))
	assert.False(t, uc.HasRole("owner"))
}

func TestBearerAuthenticate_Failures(t *testing.T) {
	a := NewBearerAuthenticator(BearerConfig{Secret: testSecret, Issuer: "voxlink"})

	tests := []struct {
		name       string
		credential string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{
			"wrong signature",
			func() string {
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"sub": "user-1",
					"iss": "voxlink",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
				signed, err := token.SignedString([]byte("other-secret"))
				require.NoError(t, err)
				return signed
			}(),
		},
		{
			"expired",
			signToken(t, jwt.MapClaims{
				"sub": "user-1",
				"iss": "voxlink",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{
			"missing exp",
			signToken(t, jwt.MapClaims{"sub": "user-1", "iss": "voxlink"}),
		},
		{
			"wrong issuer",
			signToken(t, jwt.MapClaims{
				"sub": "user-1",
				"iss": "someone-else",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
		{
			"missing sub",
			signToken(t, jwt.MapClaims{
				"iss": "voxlink",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), tt.credential)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestAPIKeyAuthenticate(t *testing.T) {
	hash, err := HashKey("sk-live-1234")
	require.NoError(t, err)

	a := NewAPIKeyAuthenticator(APIKeyConfig{
		Keys: []APIKey{{Name: "ci", Hash: hash, Roles: []string{"reader"}}},
	})

	uc, err := a.Authenticate(context.Background(), "sk-live-1234")
	require.NoError(t, err)
	assert.Equal(t, "apikey:ci", uc.UserID)
	assert.Equal(t, "apikey", uc.AuthType)
	assert.True(t, uc.HasRole("reader"))

	_, err = a.Authenticate(context.Background(), "sk-live-9999")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = a.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestChainedAuthenticate(t *testing.T) {
	hash, err := HashKey("sk-key")
	require.NoError(t, err)

	bearer := NewBearerAuthenticator(BearerConfig{Secret: testSecret})
	apikey := NewAPIKeyAuthenticator(APIKeyConfig{Keys: []APIKey{{Name: "ci", Hash: hash}}})
	chain := NewChainedAuthenticator(ChainedAuthConfig{}, bearer, apikey)

	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	uc, err := chain.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uc.UserID)

	uc, err = chain.Authenticate(context.Background(), "sk-key")
	require.NoError(t, err)
	assert.Equal(t, "apikey:ci", uc.UserID)

	_, err = chain.Authenticate(context.Background(), "bogus")
	assert.Error(t, err)
}

func TestChainedAuthenticate_AllowAnonymous(t *testing.T) {
	chain := NewChainedAuthenticator(ChainedAuthConfig{AllowAnonymous: true})

	uc, err := chain.Authenticate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", uc.UserID)
	assert.Equal(t, "anonymous", uc.AuthType)
}

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{"bearer", map[string]string{"Authorization": "Bearer tok-123"}, "tok-123"},
		{"raw authorization", map[string]string{"Authorization": "tok-123"}, "tok-123"},
		{"api key", map[string]string{"X-API-Key": "sk-1"}, "sk-1"},
		{
			"authorization wins",
			map[string]string{"Authorization": "Bearer tok-123", "X-API-Key": "sk-1"},
			"tok-123",
		},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, "/mcp", nil)
			require.NoError(t, err)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ExtractCredential(req))
		})
	}
}

func TestRequestResolver(t *testing.T) {
	a := NewBearerAuthenticator(BearerConfig{Secret: testSecret})
	resolver := NewRequestResolver(a)

	req, err := http.NewRequest(http.MethodPost, "/mcp", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
		"sub": "user-7",
		"exp": time.Now().Add(time.Hour).Unix(),
	}))

	userID, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user-7", userID)

	req.Header.Set("Authorization", "Bearer bogus")
	_, err = resolver.Resolve(req)
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	uc := &UserContext{UserID: "u1", Roles: []string{"admin"}}
	assert.True(t, uc.HasRole("admin"))
	assert.False(t, uc.HasRole("agent"))

	ctx := WithUserContext(context.Background(), uc)
	got := GetUserContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	assert.Nil(t, GetUserContext(context.Background()))
}
