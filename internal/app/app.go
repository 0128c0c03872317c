package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"feeddiff/internal/config"
	apierrors "feeddiff/internal/errors"
	"feeddiff/internal/infrastructure"
	customMiddleware "feeddiff/internal/middleware"
	"feeddiff/internal/report"
	"feeddiff/internal/services"
	handlers "feeddiff/internal/transport/http"
)

// BuildTime is set at compile time with -ldflags "-X feeddiff/internal/app.BuildTime=..."
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DiffMetrics
	ErrorHandler  *apierrors.ErrorHandler
	Services      *ServiceContainer

	mu       sync.Mutex
	listener net.Listener
	serveErr chan error
}

// ServiceContainer holds the wired services
type ServiceContainer struct {
	Runs   services.RunStore
	Diff   *services.DiffService
	Health *services.HealthService
}

// NewApplication wires the services, router and HTTP server for cfg.
// A nil logger means the process-wide infrastructure logger.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, apierrors.NewConfigError("configuration is required", nil)
	}
	if logger == nil {
		var err error
		if logger, err = infrastructure.InitializeLogger(cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateDiffMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	store := services.NewMemoryRunStore(a.Config.Runs.Capacity)

	writer := report.NewWriter(a.Paths, a.Config.Report, a.Logger).
		WithTelemetry(a.OTelProviders.Tracer, a.Metrics)

	diffService := services.NewDiffService(store, writer, a.Logger).
		WithTelemetry(a.OTelProviders.Tracer, a.Metrics)

	healthService := services.NewHealthService(config.AppVersion, BuildTime, a.Paths, store, a.Logger)

	a.Services = &ServiceContainer{
		Runs:   store,
		Diff:   diffService,
		Health: healthService,
	}
}

// setupRouter configures the HTTP router with all routes.
// Middleware order: RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Health endpoints answer within the read timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
			r.Get("/health", healthHandler.ReadinessCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)
		})

		// Diff runs may load large feeds, so they get the write timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))

			validator := customMiddleware.NewValidationMiddleware(a.Config.Server.MaxUploadBytes, a.Logger, a.ErrorHandler)
			diffHandler := handlers.NewDiffHandler(a.Services.Diff, validator, a.ErrorHandler, a.Logger)
			r.Mount("/diffs", diffHandler.Routes())
		})
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origins := a.Config.Security.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		}
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", origins))

	return customMiddleware.CORSConfig{
		AllowedOrigins: origins,
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Start binds the listener and serves in the background. Serve failures
// are reported by Wait.
func (a *Application) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	serveErr := make(chan error, 1)
	a.mu.Lock()
	a.listener = ln
	a.serveErr = serveErr
	a.mu.Unlock()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	go func() {
		err := a.Server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", ln.Addr().String()),
		slog.String("reports_dir", a.Paths.ReportsDir))
	return nil
}

// Addr returns the bound address once Start has succeeded
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Wait blocks until the server stops serving
func (a *Application) Wait() error {
	a.mu.Lock()
	serveErr := a.serveErr
	a.mu.Unlock()
	if serveErr == nil {
		return nil
	}
	return <-serveErr
}

func (a *Application) serveErrors() <-chan error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serveErr
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// server fails, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Received shutdown signal")
	case serveErr = <-a.serveErrors():
		if serveErr != nil {
			a.Logger.Error("Server error", slog.String("error", serveErr.Error()))
		}
	}

	if err := a.Stop(context.Background()); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}

// performStartupHealthCheck verifies the report directory is writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Reports": a.Paths.ReportsDir,
		"Logs":    a.Paths.LogsDir,
	}
	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
			continue
		}
		os.Remove(testFile)
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed",
		slog.Duration("shutdown_timeout", a.Config.Server.ShutdownTimeout.Round(time.Second)))
	return nil
}
