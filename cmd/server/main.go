package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/musicdl/internal/app"
	"github.com/cesargomez89/musicdl/internal/config"
	"github.com/cesargomez89/musicdl/internal/constants"
	httpapp "github.com/cesargomez89/musicdl/internal/http"
	"github.com/cesargomez89/musicdl/internal/logger"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	a, err := app.New(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if missing := a.CheckDependencies(ctx); len(missing) > 0 {
		appLogger.Warn("Downloads will fail until the missing tools are installed", "missing", missing)
	}

	a.Manager.Start(ctx)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := httpapp.NewHandler(a.Manager, a.Provider, a.DB, a.Settings)
	h.Logger = appLogger.WithComponent("http")
	h.DefaultDownloadDir = cfg.DownloadsDir
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
	}

	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr, "downloads_dir", a.Manager.BaseDir())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exiting")
}
