package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Aayushstha1/school-mgmt-api/internal/models"
	appErrors "github.com/Aayushstha1/school-mgmt-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func performRequest(r *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newTestEngine(validator tokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("")
	group.Use(JWT(validator))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestJWTMissingHeader(t *testing.T) {
	r := newTestEngine(&validatorStub{})
	w := performRequest(r, http.MethodGet, "/protected", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMalformedHeader(t *testing.T) {
	r := newTestEngine(&validatorStub{})
	w := performRequest(r, http.MethodGet, "/protected", "Token abc")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTInvalidToken(t *testing.T) {
	r := newTestEngine(&validatorStub{err: appErrors.ErrUnauthorized})
	w := performRequest(r, http.MethodGet, "/protected", "Bearer bad-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTValidTokenPasses(t *testing.T) {
	r := newTestEngine(&validatorStub{claims: &models.JWTClaims{UserID: "user-1", Role: models.RoleTeacher}})
	w := performRequest(r, http.MethodGet, "/protected", "Bearer good-token")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesAllows(t *testing.T) {
	r := newTestEngine(&validatorStub{claims: &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin}}, models.RoleAdmin)
	w := performRequest(r, http.MethodGet, "/protected", "Bearer good-token")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesBlocks(t *testing.T) {
	r := newTestEngine(&validatorStub{claims: &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}}, models.RoleAdmin, models.RoleTeacher)
	w := performRequest(r, http.MethodGet, "/protected", "Bearer good-token")
	require.Equal(t, http.StatusForbidden, w.Code)
}
