package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"

	devAccessSecret  = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"
)

type Config struct {
	Port        string
	Environment string

	StorageDriver    string
	DataDir          string
	DatabaseURL      string
	RateLimitStore   string
	RunMigrations    bool
	DBMaxOpenConns   int
	DBMaxIdleConns   int
	DBConnMaxLife    time.Duration
	DBConnMaxIdleFor time.Duration

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	PasscodeTTL   time.Duration
	BcryptCost    int

	LoginRateLimitMax  int
	SignupRateLimitMax int
	RateLimitWindow    time.Duration

	JanitorInterval time.Duration
	CronSecret      string
	SentryDSN       string

	MockExternalEmail  string
	MockExternalName   string
	MockExternalAvatar string
}

// LoadConfig reads the environment. runMigrationsDefault differs between the
// long-running server and the serverless entry point.
func LoadConfig(runMigrationsDefault bool) (Config, error) {
	c := Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("APP_ENV", "development"),

		StorageDriver:    strings.ToLower(envOrDefault("STORAGE_DRIVER", DriverJSON)),
		DataDir:          envOrDefault("DATA_DIR", "./data"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RateLimitStore:   strings.ToLower(envOrDefault("RATE_LIMIT_STORE", "memory")),
		RunMigrations:    EnvBoolOrDefault("RUN_MIGRATIONS_ON_STARTUP", runMigrationsDefault),
		DBMaxOpenConns:   envIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:   envIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLife:    envMinutesOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		DBConnMaxIdleFor: envMinutesOrDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),

		AccessSecret:  envOrDefault("JWT_SECRET", devAccessSecret),
		RefreshSecret: envOrDefault("JWT_REFRESH_SECRET", devRefreshSecret),
		AccessTTL:     envMinutesOrDefault("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTTL:    envHoursOrDefault("REFRESH_TOKEN_TTL_HOURS", 168),
		PasscodeTTL:   envMinutesOrDefault("PASSCODE_TTL_MINUTES", 10),
		BcryptCost:    envIntOrDefault("BCRYPT_COST", 12),

		LoginRateLimitMax:  envIntOrDefault("LOGIN_RATE_LIMIT_MAX", 5),
		SignupRateLimitMax: envIntOrDefault("SIGNUP_RATE_LIMIT_MAX", 3),
		RateLimitWindow:    envMinutesOrDefault("RATE_LIMIT_WINDOW_MINUTES", 15),

		JanitorInterval: envMinutesOrDefault("JANITOR_INTERVAL_MINUTES", 15),
		CronSecret:      strings.TrimSpace(os.Getenv("CRON_SECRET")),
		SentryDSN:       strings.TrimSpace(os.Getenv("SENTRY_DSN")),

		MockExternalEmail:  envOrDefault("MOCK_EXTERNAL_EMAIL", "user@example.com"),
		MockExternalName:   envOrDefault("MOCK_EXTERNAL_NAME", "John Doe"),
		MockExternalAvatar: envOrDefault("MOCK_EXTERNAL_AVATAR", "https://via.placeholder.com/150"),
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverJSON:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("missing required env: DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER: %s (supported: json, postgres)", c.StorageDriver)
	}

	switch c.RateLimitStore {
	case "memory":
	case DriverPostgres:
		if c.StorageDriver != DriverPostgres {
			return fmt.Errorf("RATE_LIMIT_STORE=postgres requires STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_STORE: %s (supported: memory, postgres)", c.RateLimitStore)
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid PORT: %s", c.Port)
	}

	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}

	env := strings.ToLower(c.Environment)
	if env == "production" || env == "prod" {
		if c.AccessSecret == devAccessSecret || c.RefreshSecret == devRefreshSecret {
			return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must be set in production")
		}
	}

	return nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Minute
}

func envHoursOrDefault(name string, fallback int) time.Duration {
	return time.Duration(envIntOrDefault(name, fallback)) * time.Hour
}

func EnvBoolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if value == "" {
		return fallback
	}

	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
