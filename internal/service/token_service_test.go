package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

func TestValidateToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "crm"})
	token, err := svc.Issue(models.JWTClaims{UserID: "u1", Role: models.RoleStaff, Email: "u1@example.com"}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})

	expired, err := svc.Issue(models.JWTClaims{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)

	other, err := NewTokenService(TokenConfig{Secret: "other"}).Issue(models.JWTClaims{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	anonymous, err := svc.Issue(models.JWTClaims{}, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, models.JWTClaims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong key":  other,
		"no subject": anonymous,
		"alg none":   none,
		"garbage":    "not-a-token",
	} {
		_, err := svc.ValidateToken(token)
		assert.True(t, errors.Is(err, appErrors.ErrUnauthorized), name)
	}
}
