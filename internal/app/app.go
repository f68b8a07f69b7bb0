// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khasanovbi/tretyakov-backend/internal/blob"
	"github.com/khasanovbi/tretyakov-backend/internal/config"
	"github.com/khasanovbi/tretyakov-backend/internal/logging"
	"github.com/khasanovbi/tretyakov-backend/internal/metrics"
	"github.com/khasanovbi/tretyakov-backend/internal/store"
	"github.com/khasanovbi/tretyakov-backend/internal/store/memory"
	"github.com/khasanovbi/tretyakov-backend/internal/store/postgres"
)

// App holds the shared, long-lived services: logger, record store, image
// storage, and the ops HTTP server. It is initialized once at startup and
// handed to the commands that need it.
type App struct {
	Config config.Config
	Logger *zap.Logger
	Store  store.Store
	Blobs  blob.Store

	ops *http.Server
}

// New builds the App from the config at path (empty path means defaults
// and environment only). It fails fast if any service cannot start.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var st store.Store
	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres")
		st, err = postgres.New(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	case "memory":
		logger.Info("using in-memory store, records will not survive the process")
		st = memory.New()
	default:
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}

	blobs, err := blob.NewLocal(cfg.Storage.PaintingsDir)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init image storage: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  st,
		Blobs:  blobs,
	}
	if cfg.Ops.Enabled {
		a.startOpsServer(cfg.Ops.Port)
	}
	return a, nil
}

// startOpsServer serves /healthz and /metrics in the background.
func (a *App) startOpsServer(port int) {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	a.ops = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.Logger.Info("ops server listening", zap.Int("port", port))
		if err := a.ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("ops server failed", zap.Error(err))
		}
	}()
}

// Close shuts down all services.
func (a *App) Close() {
	a.Logger.Info("shutting down application services")
	if a.ops != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.ops.Shutdown(ctx); err != nil {
			a.Logger.Warn("ops server shutdown failed", zap.Error(err))
		}
	}
	a.Store.Close()
	// Flush buffered log entries; best effort on shutdown.
	_ = a.Logger.Sync()
}
