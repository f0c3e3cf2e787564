package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
)

// TokenConfig holds the shared secret of the CRM identity service.
type TokenConfig struct {
	Secret string
	Issuer string
}

// TokenService validates access tokens issued by the CRM. Login and refresh
// flows live in the identity service.
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(config TokenConfig) *TokenService {
	return &TokenService{config: config, now: time.Now}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Issue signs claims valid for ttl. It backs local tooling and tests; production
// tokens come from the identity service.
func (s *TokenService) Issue(claims models.JWTClaims, ttl time.Duration) (string, error) {
	issuedAt := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    s.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, nil
}
