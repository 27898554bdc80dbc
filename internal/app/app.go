package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"volgrid/internal/config"
	apierrors "volgrid/internal/errors"
	"volgrid/internal/infrastructure"
	customMiddleware "volgrid/internal/middleware"
	"volgrid/internal/services"
	handlers "volgrid/internal/transport/http"
	"volgrid/pkg/contracts"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const AppName = "volgrid"

// Version is the server version string exposed on /api/version and in
// health payloads. The numeric part lives in pkg/contracts.
var Version = "v" + contracts.Version

// buildID identifies this binary. It is the git commit when the build
// injected one, otherwise a digest of the version and build time.
func buildID() string {
	if contracts.GitCommit != "unknown" && contracts.GitCommit != "" {
		return contracts.GitCommit
	}
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte(contracts.BuildTime))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application wires configuration, services, the router and the HTTP
// server into one runnable unit.
type Application struct {
	Config            *config.Config
	Router            *chi.Mux
	Server            *http.Server
	VolatilityService *services.VolatilityService
	ResultsService    *services.ResultsService
	HealthService     *services.HealthService
	Logger            *slog.Logger
	OTelProviders     *infrastructure.OTelProviders

	metrics   *infrastructure.BusinessMetrics
	collector *infrastructure.SystemMetricsCollector
}

// NewApplication builds a fully wired application. configPath may be
// empty, in which case the well-known config file locations are searched.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("build_id", buildID()))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices constructs the service layer. Metrics instruments
// are created once here and shared with the HTTP middleware.
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.metrics = metrics

	collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
	if err != nil {
		return fmt.Errorf("failed to create system metrics collector: %w", err)
	}
	a.collector = collector

	a.VolatilityService = services.NewVolatilityServiceWithMetrics(a.Config, metrics, a.Logger)
	a.ResultsService = services.NewResultsService(a.Config.GetOutDir(), a.Logger)
	a.HealthService = services.NewHealthServiceWithBuildInfo(
		Version,
		contracts.BuildTime,
		buildID(),
		a.Config.Paths,
		collector,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router with all routes.
// Middleware ordering: RequestID → RealIP → OTel → Logger → Recoverer →
// SecurityHeaders → CORS → RateLimit, with timeouts applied per route
// group. /metrics stays outside the instrumented group so scrapes do not
// generate spans of their own.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}
		r.Use(customMiddleware.BusinessMetricsMiddleware(a.metrics))

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Server.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}

		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	if config.GetFeatureFlag("metrics") && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures the /api endpoints. Solve and grid requests
// can run for a while on large batches, so the volatility routes get the
// solve timeout instead of the read timeout.
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/health/stats", healthHandler.Stats)
			r.Get("/version", healthHandler.Version)

			resultsHandler := handlers.NewResultsHandler(a.ResultsService, errorHandler, a.Logger)
			r.Mount("/results", resultsHandler.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.SolveTimeout, a.Logger))

			volatilityHandler := handlers.NewVolatilityHandler(a.VolatilityService, validation, errorHandler, a.Logger)
			r.Mount("/volatility", volatilityHandler.Routes())
		})
	})
}

// corsConfig returns the CORS configuration from server settings.
func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server and background collectors. A listen
// failure cancels the supplied context so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("addr", a.Config.Server.Addr()),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("data_dir", a.Config.GetDataDir()),
		slog.String("out_dir", a.Config.GetOutDir()),
		slog.String("logs_dir", a.Config.GetLogsDir()))

	go a.collector.Start(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://%s", a.Config.Server.Addr())))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.collector.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted or the server fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck verifies the working directories are
// writable before requests arrive.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	directories := map[string]string{
		"Data": a.Config.GetDataDir(),
		"Out":  a.Config.GetOutDir(),
		"Logs": a.Config.GetLogsDir(),
	}

	var warnings []string
	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
