package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/repository/memstore"
)

type capturedLogs struct {
	mu      sync.Mutex
	entries []models.AdminLog
}

func (c *capturedLogs) Record(_ context.Context, entry models.AdminLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *capturedLogs) all() []models.AdminLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.AdminLog(nil), c.entries...)
}

type fixture struct {
	users   *memstore.Users
	hasher  *auth.BcryptHasher
	logs    *capturedLogs
	admin   *AdminService
	account *AccountService
	session *SessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  memstore.NewUsers(),
		hasher: auth.NewBcryptHasher(4),
		logs:   &capturedLogs{},
	}
	f.admin = NewAdminService(f.users, f.hasher, f.logs, AdminLimits{MaxMasterAdmins: 2, MaxAdmins: 10}, logger.Nop())
	f.account = NewAccountService(f.users, f.hasher, f.logs)
	f.session = NewSessionService(f.users, f.hasher, logger.Nop())
	return f
}

func (f *fixture) seed(t *testing.T, email string, role models.Role, password string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, Role: role, Provider: models.ProviderCredentials}
	if password != "" {
		hash, err := f.hasher.Hash(password)
		require.NoError(t, err)
		u.PasswordHash = hash
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) sessionFor(t *testing.T, u *models.User) *auth.Session {
	t.Helper()
	s, err := f.session.Materialize(context.Background(), u.ID)
	require.NoError(t, err)
	return s
}
