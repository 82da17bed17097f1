// Package app wires configuration, logging, storage, services, and the
// HTTP router into a single runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jmoiron/sqlx"

	"github.com/rahul-epicap/valuation-agent/internal/config"
	"github.com/rahul-epicap/valuation-agent/internal/infrastructure"
	"github.com/rahul-epicap/valuation-agent/internal/middleware"
	"github.com/rahul-epicap/valuation-agent/internal/services"
	"github.com/rahul-epicap/valuation-agent/internal/store"
	transporthttp "github.com/rahul-epicap/valuation-agent/internal/transport/http"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Application holds all application dependencies and state.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server

	DB           *sqlx.DB
	SnapshotRepo store.SnapshotRepo

	Snapshots  *services.SnapshotService
	Valuations *services.ValuationService
	Health     *services.HealthService

	cancelFunc context.CancelFunc
}

// NewApplication creates a fully configured application instance.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	logger.Info("application initialized",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port))

	return app, nil
}

// initializeServices connects the snapshot store and builds the service
// layer on top of it.
func (app *Application) initializeServices() error {
	db, err := store.Open(app.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	app.DB = db

	repo := store.NewSnapshotRepo(db, app.Config.Database.QueryTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ensure snapshot schema: %w", err)
	}
	app.SnapshotRepo = repo

	app.Snapshots = services.NewSnapshotService(repo, app.Logger)
	app.Valuations = services.NewValuationService(repo, app.Logger)
	app.Health = services.NewHealthService(Version, db, app.Logger)

	return nil
}

// setupRouter configures the chi router with middleware and routes.
func (app *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.StructuredLogger(app.Logger))
		r.Use(middleware.Recoverer(app.Logger))
		r.Use(middleware.SecurityHeaders)

		if app.Config.Security.EnableCORS {
			r.Use(middleware.CORS(middleware.CORSConfig{
				AllowedOrigins: app.Config.Security.AllowedOrigins,
				Logger:         app.Logger,
			}))
		}

		if app.Config.Security.RateLimit.Enabled {
			limiter := middleware.NewRateLimiter(
				app.Config.Security.RateLimit.RPS,
				app.Config.Security.RateLimit.Burst,
				app.Logger,
			)
			r.Use(limiter.Handler)
		}

		app.setupAPIRoutes(r)
	})

	app.Router = r
}

// setupAPIRoutes mounts all API handlers under /api.
func (app *Application) setupAPIRoutes(r chi.Router) {
	valuationHandler := transporthttp.NewValuationHandler(app.Valuations, app.Logger)
	snapshotHandler := transporthttp.NewSnapshotHandler(
		app.Snapshots, app.Valuations, app.Config.Server.MaxUploadBytes, app.Logger)
	healthHandler := transporthttp.NewHealthHandler(app.Health, app.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.Timeout(app.Config.Server.RequestTimeout, app.Logger))

		valuationHandler.RegisterRoutes(r)
		snapshotHandler.RegisterRoutes(r)
		healthHandler.RegisterRoutes(r)
	})
}

// createServer creates the HTTP server.
func (app *Application) createServer() {
	app.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", app.Config.Server.Port),
		Handler:        app.Router,
		ReadTimeout:    app.Config.Server.ReadTimeout,
		WriteTimeout:   app.Config.Server.WriteTimeout,
		IdleTimeout:    app.Config.Server.IdleTimeout,
		MaxHeaderBytes: app.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server in a goroutine.
func (app *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	app.cancelFunc = cancel

	go func() {
		app.Logger.InfoContext(ctx, "starting HTTP server",
			slog.String("addr", app.Server.Addr))
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.ErrorContext(ctx, "HTTP server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully shuts down the application.
func (app *Application) Stop() error {
	app.Logger.Info("shutting down application")

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		app.Logger.Error("server shutdown error", slog.String("error", err.Error()))
		return err
	}

	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("database close error", slog.String("error", err.Error()))
		}
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	infrastructure.CloseLogFile()

	return nil
}

// Run starts the application and blocks until interrupted.
func (app *Application) Run() error {
	ctx := context.Background()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return app.Stop()
}
