package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type validatorStub struct {
	claims map[string]*models.JWTClaims
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type observerStub struct {
	method string
	path   string
	status int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.method = method
	o.path = path
	o.status = status
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := &validatorStub{claims: map[string]*models.JWTClaims{
		"admin":  {UserID: "u1", Role: models.RoleAdmin},
		"viewer": {UserID: "u2", Role: models.RoleViewer},
		"root":   {UserID: "u3", Role: models.RoleSuperAdmin},
	}}
	router := gin.New()
	group := router.Group("/", JWT(validator))
	group.GET("/schedule", func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.UserID)
	})
	group.POST("/schedule/sessions", RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func perform(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTRequiresBearerToken(t *testing.T) {
	router := newAuthRouter()

	require.Equal(t, http.StatusUnauthorized, perform(router, http.MethodGet, "/schedule", "").Code)
	require.Equal(t, http.StatusUnauthorized, perform(router, http.MethodGet, "/schedule", "bogus").Code)

	req := httptest.NewRequest(http.MethodGet, "/schedule", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(router, http.MethodGet, "/schedule", "viewer")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u2", w.Body.String())
}

func TestRequireRoles(t *testing.T) {
	router := newAuthRouter()

	assert.Equal(t, http.StatusForbidden, perform(router, http.MethodPost, "/schedule/sessions", "viewer").Code)
	assert.Equal(t, http.StatusCreated, perform(router, http.MethodPost, "/schedule/sessions", "admin").Code)
	assert.Equal(t, http.StatusCreated, perform(router, http.MethodPost, "/schedule/sessions", "root").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, perform(router, http.MethodPost, "/x", "").Code)
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/schedule/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	perform(router, http.MethodGet, "/schedule/sessions/abc", "")
	assert.Equal(t, http.MethodGet, observer.method)
	assert.Equal(t, "/schedule/sessions/:id", observer.path)
	assert.Equal(t, http.StatusNoContent, observer.status)

	perform(router, http.MethodGet, "/nope", "")
	assert.Equal(t, "unmatched", observer.path)
	assert.Equal(t, http.StatusNotFound, observer.status)
}
