package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/service"
)

const testSecret = "middleware-test-secret"

func testAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, service.AuthConfig{
		Secret:             testSecret,
		AccessTokenExpiry:  time.Minute,
		RefreshTokenExpiry: time.Hour,
	})
}

func signTestToken(t *testing.T, role models.UserRole, userID string) string {
	t.Helper()
	claims := models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestJWTMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/coaches", nil)

	JWT(testAuthService())(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, c.IsAborted())
}

func TestJWTValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/coaches", nil)
	c.Request.Header.Set("Authorization", "Bearer "+signTestToken(t, models.RoleAdmin, "user-1"))

	JWT(testAuthService())(c)

	assert.False(t, c.IsAborted())
	value, exists := c.Get(ContextUserKey)
	require.True(t, exists)
	claims := value.(*models.JWTClaims)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestJWTMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/coaches", nil)
	c.Request.Header.Set("Authorization", "Token abc")

	JWT(testAuthService())(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRBACAllowsRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleCoach})

	RequireRoles(models.RoleAdmin, models.RoleCoach)(c)

	assert.False(t, c.IsAborted())
}

func TestRBACRejectsRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/coaches/coach-1", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	RequireRoles(models.RoleAdmin)(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, c.IsAborted())
}

func TestRBACAllowsSelf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/users/user-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-1"}}
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	RBAC(string(models.RoleAdmin), RoleSelf)(c)

	assert.False(t, c.IsAborted())
}

func TestRBACRejectsOtherUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/users/user-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-2"}}
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	RBAC(string(models.RoleAdmin), RoleSelf)(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
