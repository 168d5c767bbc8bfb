package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/ratelimit"
	"storefront/internal/repository/memstore"
	"storefront/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	users  *memstore.Users
	tokens *auth.TokenManager
	router *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:  memstore.NewUsers(),
		tokens: auth.NewTokenManager("test-secret", time.Minute),
	}
	sessions := service.NewSessionService(h.users, auth.NewBcryptHasher(4), logger.Nop())

	r := gin.New()
	r.Use(RequestContext(), SessionAuth(h.tokens, sessions, logger.Nop()))
	r.GET("/api/admin", RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": CurrentSession(c).Role})
	})
	r.GET("/api/master", RequireMasterAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/admin", RequirePageRole(models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "dashboard")
	})
	h.router = r
	return h
}

func (h *harness) user(t *testing.T, role models.Role) (*models.User, string) {
	t.Helper()
	u := &models.User{Email: primitive.NewObjectID().Hex() + "@shop.test", Role: role}
	require.NoError(t, h.users.Create(context.Background(), u))
	token, err := h.tokens.Issue(u)
	require.NoError(t, err)
	return u, token
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func bearer(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestRequireRoleJSON(t *testing.T) {
	h := newHarness(t)
	_, userToken := h.user(t, models.RoleUser)
	_, adminToken := h.user(t, models.RoleAdmin)

	w := h.do(bearer("/api/admin", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHENTICATED")

	w = h.do(bearer("/api/admin", "garbage"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(bearer("/api/admin", userToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"insufficient permissions","code":"FORBIDDEN"}`, w.Body.String())

	w = h.do(bearer("/api/admin", adminToken))
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(bearer("/api/master", adminToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoleIsReadFromStoreNotToken(t *testing.T) {
	h := newHarness(t)
	u, token := h.user(t, models.RoleAdmin)

	assert.Equal(t, http.StatusOK, h.do(bearer("/api/admin", token)).Code)

	require.NoError(t, h.users.UpdateRole(context.Background(), u.ID, models.RoleUser))
	assert.Equal(t, http.StatusForbidden, h.do(bearer("/api/admin", token)).Code)

	require.NoError(t, h.users.Delete(context.Background(), u.ID))
	assert.Equal(t, http.StatusUnauthorized, h.do(bearer("/api/admin", token)).Code)
}

func TestRequirePageRoleRedirects(t *testing.T) {
	h := newHarness(t)
	_, userToken := h.user(t, models.RoleUser)
	_, adminToken := h.user(t, models.RoleAdmin)

	w := h.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: userToken})
	w = h.do(req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: adminToken})
	w = h.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dashboard", w.Body.String())
}

func TestRequestContextSetsRequestID(t *testing.T) {
	h := newHarness(t)
	w := h.do(bearer("/api/admin", ""))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := bearer("/api/admin", "")
	req.Header.Set(RequestIDHeader, "4b5e2a3c-1d1e-4f3a-9a51-2f0d7b1c9e11")
	w = h.do(req)
	assert.Equal(t, "4b5e2a3c-1d1e-4f3a-9a51-2f0d7b1c9e11", w.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(ratelimit.NewMemoryLimiter(), "login", 2, time.Minute, logger.Nop(), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
