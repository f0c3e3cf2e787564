package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
	"github.com/noah-isme/fms-tracker-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}
