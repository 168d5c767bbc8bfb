package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repository/memstore"
	"storefront/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordedLogs struct {
	mu      sync.Mutex
	entries []models.AdminLog
}

func (r *recordedLogs) Record(_ context.Context, entry models.AdminLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordedLogs) actions() []models.AdminAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AdminAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// testServer wires the database-free handlers over in-memory stores.
type testServer struct {
	users    *memstore.Users
	coupons  *memstore.Coupons
	logs     *memstore.AdminLogs
	audit    *recordedLogs
	hasher   *auth.BcryptHasher
	tokens   *auth.TokenManager
	sessions *service.SessionService
	tokenSvc *service.TokenService
	router   *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	s := &testServer{
		users:   memstore.NewUsers(),
		coupons: memstore.NewCoupons(),
		logs:    memstore.NewAdminLogs(),
		audit:   &recordedLogs{},
		hasher:  auth.NewBcryptHasher(4),
		tokens:  auth.NewTokenManager("handler-test-secret", 5*time.Minute),
	}
	s.sessions = service.NewSessionService(s.users, s.hasher, log)
	s.tokenSvc = service.NewTokenService(s.tokens, memstore.NewRefreshTokens(), s.users, time.Hour)
	admins := service.NewAdminService(s.users, s.hasher, s.audit, service.AdminLimits{MaxMasterAdmins: 2, MaxAdmins: 10}, log)
	accounts := service.NewAccountService(s.users, s.hasher, s.audit)
	coupons := service.NewCouponService(s.coupons)

	r := gin.New()
	r.Use(middleware.RequestContext(), middleware.SessionAuth(s.tokens, s.sessions, log))

	r.POST("/auth/register", Register(s.sessions, s.tokenSvc, log))
	r.POST("/auth/login", Login(s.sessions, s.tokenSvc, log))
	r.POST("/auth/refresh", Refresh(s.tokenSvc, log))
	r.POST("/auth/logout", Logout(s.tokenSvc, log))
	r.GET("/auth/me", Me(s.users, log))
	r.POST("/auth/change-password", ChangePassword(accounts, log))
	r.POST("/admin/login", AdminLogin(s.sessions, s.tokenSvc, CookieOptions{MaxAge: 300}, log))
	r.POST("/coupons/validate", ValidateCoupon(coupons, log))

	api := r.Group("/admin/api", middleware.RequireAdmin())
	api.GET("/users", ListUsers(admins, log))
	api.PATCH("/users/:id", UpdateUser(admins, log))
	api.POST("/coupons", CreateCoupon(coupons, log))
	api.GET("/coupons", ListCoupons(coupons, log))

	master := api.Group("/master", middleware.RequireMasterAdmin())
	master.GET("/admins", ListAdmins(admins, log))
	master.POST("/admins", CreateAdmin(admins, log))
	master.PATCH("/admins/:id/password", ResetAdminPassword(admins, log))
	master.PATCH("/admins/:id/role", ChangeAdminRole(admins, log))
	master.POST("/admins/:id/promote", PromoteAdmin(admins, log))
	master.DELETE("/admins/:id", DeleteAdmin(admins, log))
	master.GET("/logs", ListAdminLogs(s.logs, log))

	s.router = r
	return s
}

func (s *testServer) seed(t *testing.T, email string, role models.Role, password string) (*models.User, string) {
	t.Helper()
	u := &models.User{Email: email, Name: "Seed " + string(role), Role: role, Provider: models.ProviderCredentials}
	if password != "" {
		hash, err := s.hasher.Hash(password)
		require.NoError(t, err)
		u.PasswordHash = hash
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	token, err := s.tokens.Issue(u)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}

