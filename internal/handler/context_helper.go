package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/middleware"
	"github.com/account-academy/backoffice-api/internal/models"
)

// claimsFromContext returns the JWT claims the auth middleware stored, or
// nil on unauthenticated routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, _ := c.Value(middleware.ContextUserKey).(*models.JWTClaims)
	return claims
}

func currentUserID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
