package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notekeeper/internal/app"
	"notekeeper/internal/observability"
)

func main() {
	logger := observability.NewLogger()

	rt, err := app.Build(app.Options{LoadDotEnv: true, RunMigrationsDefault: true})
	if err != nil {
		logger.Error("bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%s", rt.Config.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      rt.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server_start", map[string]any{"addr": addr, "storage": rt.Config.StorageDriver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown_failed", map[string]any{"error": err.Error()})
	}
	if err := rt.Close(); err != nil {
		logger.Error("close_failed", map[string]any{"error": err.Error()})
	}
	logger.Info("server_stopped", nil)
}
