package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	appErrors "github.com/noah-isme/fms-tracker-api/pkg/errors"
	"github.com/noah-isme/fms-tracker-api/pkg/response"
)

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
