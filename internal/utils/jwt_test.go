package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManagerRoundtrip(t *testing.T) {
	manager := JWTManager{
		Secret:         []byte("test-secret"),
		Issuer:         "outdoortracker",
		AccessTokenTTL: time.Hour,
	}

	token, ttl, err := manager.IssueAccessToken("user-1", "admin", "session-1")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	claims, err := manager.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "outdoortracker", claims.Issuer)
}

func TestJWTManagerDefaultTTL(t *testing.T) {
	manager := JWTManager{Secret: []byte("test-secret")}

	_, ttl, err := manager.IssueAccessToken("user-1", "user", "")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestJWTManagerRejectsExpired(t *testing.T) {
	manager := JWTManager{
		Secret:         []byte("test-secret"),
		AccessTokenTTL: -time.Minute,
	}

	token, _, err := manager.IssueAccessToken("user-1", "user", "")
	require.NoError(t, err)

	_, err = manager.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManagerRejectsWrongSecret(t *testing.T) {
	issuer := JWTManager{Secret: []byte("secret-a"), AccessTokenTTL: time.Hour}
	parser := JWTManager{Secret: []byte("secret-b"), AccessTokenTTL: time.Hour}

	token, _, err := issuer.IssueAccessToken("user-1", "user", "")
	require.NoError(t, err)

	_, err = parser.ParseAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManagerRejectsGarbage(t *testing.T) {
	manager := JWTManager{Secret: []byte("test-secret")}

	_, err := manager.ParseAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashTokenDeterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.NotEqual(t, "abc", HashToken("abc"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}
