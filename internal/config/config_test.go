package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("MAX_ADMINS", "")

	cfg := Load()

	assert.Equal(t, 20*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 2, cfg.MaxMasterAdmins)
	assert.Equal(t, 10, cfg.MaxAdmins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "45")
	t.Setenv("MAX_ADMINS", "4")
	t.Setenv("APP_ENV", "prod")

	cfg := Load()

	assert.Equal(t, 45*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 4, cfg.MaxAdmins)
	assert.True(t, cfg.IsProduction())
}

func TestIntEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_MASTER_ADMINS", "two")
	assert.Equal(t, 2, getIntEnv("MAX_MASTER_ADMINS", 2))

	t.Setenv("MAX_MASTER_ADMINS", "-1")
	assert.Equal(t, 2, getIntEnv("MAX_MASTER_ADMINS", 2))
}
