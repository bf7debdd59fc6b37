package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportdesk/report-desk-api/internal/models"
	appErrors "github.com/reportdesk/report-desk-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims *models.IdentityClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestResolveValidToken(t *testing.T) {
	svc := NewIdentityService("secret")

	signed := signToken(t, "secret", &models.IdentityClaims{
		UserID:   "user-1",
		Email:    "mod@example.com",
		FullName: "Anna Nowak",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.Resolve(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Anna Nowak", claims.FullName)
}

func TestResolveFallsBackToSubject(t *testing.T) {
	svc := NewIdentityService("secret")

	signed := signToken(t, "secret", &models.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subject-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.Resolve(signed)
	require.NoError(t, err)
	assert.Equal(t, "subject-7", claims.UserID)
}

func TestResolveRejectsWrongSecret(t *testing.T) {
	svc := NewIdentityService("secret")

	signed := signToken(t, "other", &models.IdentityClaims{UserID: "user-1"})

	_, err := svc.Resolve(signed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	svc := NewIdentityService("secret")

	signed := signToken(t, "secret", &models.IdentityClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := svc.Resolve(signed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestResolveRejectsTokenWithoutIdentity(t *testing.T) {
	svc := NewIdentityService("secret")

	signed := signToken(t, "secret", &models.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := svc.Resolve(signed)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
