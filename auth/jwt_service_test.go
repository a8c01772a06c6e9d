package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashPassword("open sesame")
	require.NoError(t, err)
	svc, err := NewService("test-secret", hash)
	require.NoError(t, err)
	return svc
}

func TestServiceDisabledWithoutHash(t *testing.T) {
	svc, err := NewService("", "")
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService("", "$2a$10$abc")
	assert.Error(t, err)
	_, err = NewService("secret", "not-a-hash")
	assert.Error(t, err)
}

func TestCheckPassword(t *testing.T) {
	svc := newTestService(t)
	assert.True(t, svc.Enabled())
	assert.NoError(t, svc.CheckPassword("open sesame"))
	assert.ErrorIs(t, svc.CheckPassword("wrong"), ErrInvalidPassword)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)
	token, expires, err := svc.GenerateToken("api")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(tokenTTL), expires, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "api", claims.Scope)
	assert.Equal(t, AccessSubject, claims.Subject)
}

func TestExpiredAndForeignTokens(t *testing.T) {
	svc := newTestService(t)
	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, _, err := svc.GenerateToken("api")
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.ValidateToken(expired)
	assert.ErrorContains(t, err, "expired")

	other, err := NewService("other-secret", "")
	require.NoError(t, err)
	foreign, _, err := other.GenerateToken("api")
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorContains(t, err, "malformed")
}
