package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aerium-backend/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.IssueAccess(42)
	require.NoError(t, err)

	userID, err := m.Verify(token, TokenKindAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	m := newTestManager()

	refresh, err := m.IssueRefresh(42)
	require.NoError(t, err)

	_, err = m.Verify(refresh, TokenKindAccess)
	assert.ErrorIs(t, err, ErrWrongKind)

	userID, err := m.Verify(refresh, TokenKindRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  -time.Minute,
		RefreshTokenTTL: time.Hour,
	})

	token, err := m.IssueAccess(42)
	require.NoError(t, err)

	_, err = m.Verify(token, TokenKindAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenFromOtherSecretIsRejected(t *testing.T) {
	other := NewManager(&config.AuthConfig{
		JWTSecret:       "another-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: time.Hour,
	})
	token, err := other.IssueAccess(42)
	require.NoError(t, err)

	_, err = newTestManager().Verify(token, TokenKindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenIsRejected(t *testing.T) {
	_, err := newTestManager().Verify("not.a.token", TokenKindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
}
