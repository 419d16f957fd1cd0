package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/models"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/response"
)

// RoleSelf is a pseudo-role that admits an authenticated user when the :id
// path parameter is their own user id.
const RoleSelf = "SELF"

// RBAC admits requests whose JWT claims carry one of the allowed roles.
// Must run behind the JWT middleware.
func RBAC(allowed ...string) gin.HandlerFunc {
	roles := make(map[models.UserRole]bool, len(allowed))
	allowSelf := false
	for _, role := range allowed {
		if role == RoleSelf {
			allowSelf = true
			continue
		}
		roles[models.UserRole(role)] = true
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

		if roles[claims.Role] {
			c.Next()
			return
		}
		if allowSelf && claims.UserID != "" && c.Param("id") == claims.UserID {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is RBAC over typed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, role := range roles {
		allowed[i] = string(role)
	}
	return RBAC(allowed...)
}
