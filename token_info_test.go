package authclient_test

import (
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestTokenExpiry(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := signedToken(t, jwt.MapClaims{
		"sub": "8b7bf1d2-7f93-4e41-9ad0-0e9bb2a4e0ab",
		"exp": expiry.Unix(),
	})

	got, ok := authclient.TokenExpiry(raw)
	require.True(t, ok)
	assert.True(t, got.Equal(expiry))
}

func TestTokenExpiryWithoutClaim(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"sub": "someone"})

	_, ok := authclient.TokenExpiry(raw)
	assert.False(t, ok)
}

func TestTokenExpiryOpaqueToken(t *testing.T) {
	_, ok := authclient.TokenExpiry("not-a-jwt")
	assert.False(t, ok)
}

func TestTokenSubject(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"sub": "8b7bf1d2-7f93-4e41-9ad0-0e9bb2a4e0ab"})

	sub, ok := authclient.TokenSubject(raw)
	require.True(t, ok)
	assert.Equal(t, "8b7bf1d2-7f93-4e41-9ad0-0e9bb2a4e0ab", sub)

	_, ok = authclient.TokenSubject("not-a-jwt")
	assert.False(t, ok)
}

func TestIsTokenExpired(t *testing.T) {
	now := time.Now()

	live := signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
	assert.False(t, authclient.IsTokenExpired(live, now))

	expired := signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()})
	assert.True(t, authclient.IsTokenExpired(expired, now))

	// opaque tokens cannot be judged and are treated as live
	assert.False(t, authclient.IsTokenExpired("not-a-jwt", now))
}
