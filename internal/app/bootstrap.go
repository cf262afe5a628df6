package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"notekeeper/internal/auth"
	"notekeeper/internal/db"
	"notekeeper/internal/httpx"
	"notekeeper/internal/maintenance"
	"notekeeper/internal/note"
	"notekeeper/internal/observability"
)

type Options struct {
	LoadDotEnv           bool
	RunMigrationsDefault bool
}

type Runtime struct {
	Config  Config
	Handler http.Handler
	Close   func() error
}

func Build(options Options) (*Runtime, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	logger := observability.NewLogger()

	cfg, err := LoadConfig(options.RunMigrationsDefault)
	if err != nil {
		return nil, err
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}

	rt, err := New(cfg, logger)
	if err != nil {
		observability.FlushSentry()
		return nil, err
	}

	closeRuntime := rt.Close
	rt.Close = func() error {
		err := closeRuntime()
		observability.FlushSentry()
		return err
	}
	return rt, nil
}

type stores struct {
	users       auth.UserRepository
	passcodes   auth.PasscodeRepository
	revocations auth.RevocationStore
	counters    auth.CounterStore
	notes       note.Repository
	health      func(ctx context.Context) error
	close       func() error
}

// New wires a runtime from an already loaded configuration.
func New(cfg Config, logger *observability.Logger) (*Runtime, error) {
	st, err := openStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenService(cfg.AccessSecret, cfg.RefreshSecret, st.revocations).
		WithTTL(cfg.AccessTTL, cfg.RefreshTTL)
	limiter := auth.NewRateLimiter(st.counters)

	authService := auth.NewService(auth.Dependencies{
		Users:     st.users,
		Passcodes: st.passcodes,
		Tokens:    tokens,
		Limiter:   limiter,
		Verifier: auth.MockVerifier{
			Email:     cfg.MockExternalEmail,
			Name:      cfg.MockExternalName,
			AvatarURL: cfg.MockExternalAvatar,
		},
		Logger: logger,
	})
	authService.WithSecurityConfig(cfg.PasscodeTTL, cfg.BcryptCost)
	authHandler := auth.NewHandler(authService)

	noteHandler := note.NewHandler(note.NewService(st.notes))
	cleanupHandler := maintenance.NewCleanupHandler(authService, logger, cfg.CronSecret)

	janitor := maintenance.NewJanitor(authService, logger, cfg.JanitorInterval)
	janitor.Start()

	protect := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(tokens, h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/signup", limiter.Middleware("signup", "Too many signup attempts. Please try again later.",
		cfg.SignupRateLimitMax, cfg.RateLimitWindow, http.HandlerFunc(authHandler.Signup)))
	mux.HandleFunc("POST /api/auth/verify-otp", authHandler.VerifyPasscode)
	mux.Handle("POST /api/auth/login", limiter.Middleware("login", "Too many login attempts. Please try again later.",
		cfg.LoginRateLimitMax, cfg.RateLimitWindow, http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/google", authHandler.ExternalLogin)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/me", protect(authHandler.Me))
	mux.Handle("GET /api/notes", protect(noteHandler.ListNotes))
	mux.Handle("POST /api/notes", protect(noteHandler.CreateNote))
	mux.Handle("GET /api/notes/{id}", protect(noteHandler.GetNote))
	mux.Handle("PUT /api/notes/{id}", protect(noteHandler.UpdateNote))
	mux.Handle("DELETE /api/notes/{id}", protect(noteHandler.DeleteNote))
	mux.HandleFunc("GET /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("POST /internal/maintenance/cleanup", cleanupHandler.Handle)
	mux.HandleFunc("GET /health", healthHandler(st.health))

	handler := observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, mux))

	return &Runtime{
		Config:  cfg,
		Handler: handler,
		Close: func() error {
			janitor.Stop()
			return st.close()
		},
	}, nil
}

func openStores(cfg Config, logger *observability.Logger) (stores, error) {
	switch cfg.StorageDriver {
	case DriverPostgres:
		return openPostgres(cfg, logger)
	default:
		return openJSON(cfg)
	}
}

func openJSON(cfg Config) (stores, error) {
	users, err := auth.NewJSONUserRepository(cfg.DataDir)
	if err != nil {
		return stores{}, err
	}
	passcodes, err := auth.NewJSONPasscodeRepository(cfg.DataDir)
	if err != nil {
		return stores{}, err
	}
	revocations, err := auth.NewJSONRevocationStore(cfg.DataDir)
	if err != nil {
		return stores{}, err
	}
	notes, err := note.NewJSONRepository(cfg.DataDir)
	if err != nil {
		return stores{}, err
	}

	return stores{
		users:       users,
		passcodes:   passcodes,
		revocations: revocations,
		counters:    auth.NewMemoryCounterStore(),
		notes:       notes,
		health: func(context.Context) error {
			info, err := os.Stat(cfg.DataDir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", cfg.DataDir)
			}
			return nil
		},
		close: func() error { return nil },
	}, nil
}

func openPostgres(cfg Config, logger *observability.Logger) (stores, error) {
	database, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return stores{}, fmt.Errorf("open database: %w", err)
	}

	database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	database.SetConnMaxLifetime(cfg.DBConnMaxLife)
	database.SetConnMaxIdleTime(cfg.DBConnMaxIdleFor)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return stores{}, fmt.Errorf("ping database: %w", err)
	}

	if cfg.RunMigrations {
		applied, err := db.RunMigrations(ctx, database)
		if err != nil {
			_ = database.Close()
			return stores{}, fmt.Errorf("run migrations: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("migrations_applied", map[string]any{"versions": applied})
		}
	}

	var counters auth.CounterStore = auth.NewMemoryCounterStore()
	if cfg.RateLimitStore == DriverPostgres {
		counters = auth.NewPostgresCounterStore(database)
	}

	return stores{
		users:       auth.NewPostgresUserRepository(database),
		passcodes:   auth.NewPostgresPasscodeRepository(database),
		revocations: auth.NewPostgresRevocationStore(database),
		counters:    counters,
		notes:       note.NewPostgresRepository(database),
		health:      database.PingContext,
		close:       database.Close,
	}, nil
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		httpx.WriteJSON(w, status, body)
	}
}
