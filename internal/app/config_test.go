package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"PORT", "APP_ENV", "STORAGE_DRIVER", "DATA_DIR", "DATABASE_URL", "RATE_LIMIT_STORE",
	"RUN_MIGRATIONS_ON_STARTUP", "JWT_SECRET", "JWT_REFRESH_SECRET", "ACCESS_TOKEN_TTL_MINUTES",
	"REFRESH_TOKEN_TTL_HOURS", "PASSCODE_TTL_MINUTES", "BCRYPT_COST", "LOGIN_RATE_LIMIT_MAX",
	"SIGNUP_RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW_MINUTES", "JANITOR_INTERVAL_MINUTES", "CRON_SECRET",
	"SENTRY_DSN", "MOCK_EXTERNAL_EMAIL", "MOCK_EXTERNAL_NAME", "MOCK_EXTERNAL_AVATAR",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnv {
		t.Setenv(name, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig(true)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverJSON, cfg.StorageDriver)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "memory", cfg.RateLimitStore)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 10*time.Minute, cfg.PasscodeTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 5, cfg.LoginRateLimitMax)
	assert.Equal(t, 3, cfg.SignupRateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "user@example.com", cfg.MockExternalEmail)
	assert.Empty(t, cfg.CronSecret)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/notes")
	t.Setenv("RATE_LIMIT_STORE", "postgres")
	t.Setenv("RUN_MIGRATIONS_ON_STARTUP", "off")
	t.Setenv("LOGIN_RATE_LIMIT_MAX", "10")
	t.Setenv("RATE_LIMIT_WINDOW_MINUTES", "not-a-number")

	cfg, err := LoadConfig(true)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, DriverPostgres, cfg.RateLimitStore)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 10, cfg.LoginRateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"STORAGE_DRIVER": "mongo"}},
		{name: "postgres without url", env: map[string]string{"STORAGE_DRIVER": "postgres"}},
		{name: "shared counters without postgres", env: map[string]string{"RATE_LIMIT_STORE": "postgres"}},
		{name: "unknown counter store", env: map[string]string{"RATE_LIMIT_STORE": "redis"}},
		{name: "bad port", env: map[string]string{"PORT": "http"}},
		{name: "equal secrets", env: map[string]string{"JWT_SECRET": "same", "JWT_REFRESH_SECRET": "same"}},
		{name: "dev secrets in production", env: map[string]string{"APP_ENV": "production"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(false)
			assert.Error(t, err)
		})
	}
}

func TestEnvBoolOrDefault(t *testing.T) {
	t.Setenv("FLAG", "yes")
	assert.True(t, EnvBoolOrDefault("FLAG", false))

	t.Setenv("FLAG", "0")
	assert.False(t, EnvBoolOrDefault("FLAG", true))

	t.Setenv("FLAG", "maybe")
	assert.True(t, EnvBoolOrDefault("FLAG", true))
}
