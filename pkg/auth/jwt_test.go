package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcore/records-api/internal/model"
)

func newTestService(accessTTL, refreshTTL time.Duration) JWTService {
	return NewJWTService(Config{
		Secret:        "access-secret",
		RefreshSecret: "refresh-secret",
		AccessExpiry:  accessTTL,
		RefreshExpiry: refreshTTL,
	})
}

func testPhysician() *model.Physician {
	return &model.Physician{ID: 42, Email: "doc@example.com"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(15*time.Minute, 24*time.Hour)

	token, err := svc.GenerateAccessToken(testPhysician())
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.PhysicianID)
	assert.Equal(t, "doc@example.com", claims.Email)
}

func TestRefreshTokenNotValidAsAccess(t *testing.T) {
	svc := newTestService(15*time.Minute, 24*time.Hour)

	refresh, err := svc.GenerateRefreshToken(testPhysician())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(refresh)
	assert.Error(t, err)

	_, err = svc.ValidateRefreshToken(refresh)
	assert.NoError(t, err)
}

func TestAccessTokenNotValidAsRefresh(t *testing.T) {
	svc := newTestService(15*time.Minute, 24*time.Hour)

	access, err := svc.GenerateAccessToken(testPhysician())
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	svc := newTestService(-time.Minute, 24*time.Hour)

	token, err := svc.GenerateAccessToken(testPhysician())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTamperedToken(t *testing.T) {
	svc := newTestService(15*time.Minute, 24*time.Hour)

	token, err := svc.GenerateAccessToken(testPhysician())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDifferentSecretRejected(t *testing.T) {
	svc := newTestService(15*time.Minute, 24*time.Hour)
	other := NewJWTService(Config{
		Secret:        "different-secret",
		RefreshSecret: "other-refresh",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})

	token, err := svc.GenerateAccessToken(testPhysician())
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}
