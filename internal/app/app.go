package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"

	"simdash/internal/config"
	apierrors "simdash/internal/errors"
	"simdash/internal/infrastructure"
	customMiddleware "simdash/internal/middleware"
	"simdash/internal/services"
	"simdash/internal/sources"
	handlers "simdash/internal/transport/http"
)

// BuildTime is set at link time with -ldflags "-X simdash/internal/app.BuildTime=..."
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.Metrics
	Services      *ServiceContainer
	ErrorHandler  *apierrors.ErrorHandler

	fs        afero.Fs
	startTime time.Time
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Sources *sources.Resolver
	Actions *services.ActionsService
	Health  *services.HealthService
}

// Option customizes an Application before its services are built
type Option func(*Application)

// WithFs replaces the OS filesystem used for the data directory
func WithFs(fs afero.Fs) Option {
	return func(a *Application) { a.fs = fs }
}

// NewApplication loads the configuration and logger from the environment
// and wires the application
func NewApplication(opts ...Option) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger, opts...)
}

// New wires an application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		fs:            afero.NewOsFs(),
		startTime:     time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}

	metrics, err := infrastructure.NewMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	a.Metrics = metrics

	if err := infrastructure.RegisterRuntimeMetrics(otelProviders.Meter, a.startTime); err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	if err := a.initializeServices(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

// NewSourceResolver builds the source resolver described by cfg. A Drive
// client is created only when a credentials file is configured.
func NewSourceResolver(ctx context.Context, cfg config.SourcesConfig, fs afero.Fs, logger *slog.Logger) (*sources.Resolver, error) {
	opts := []sources.Option{
		sources.WithFs(fs),
		sources.WithLogger(logger),
		sources.WithAllowRemote(cfg.AllowRemote),
		sources.WithActionLogName(config.ActionLogFileName),
		sources.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}

	if cfg.GDriveCredentialsFile != "" {
		drive, err := sources.NewDrive(ctx, cfg.GDriveCredentialsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sources.WithDrive(drive))
		logger.Info("Google Drive sources enabled")
	}

	return sources.NewResolver(cfg.DataDir, opts...), nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	resolver, err := NewSourceResolver(ctx, a.Config.Sources, a.fs, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sources: %w", err)
	}

	actions := services.NewActionsService(resolver, a.Config.Processing, a.Logger,
		services.WithTracer(a.OTelProviders.Tracer),
		services.WithMetrics(a.Metrics))

	health := services.NewHealthService(config.AppVersion, a.Config.GetDataDir(), resolver, a.Logger,
		services.WithBuildTime(BuildTime),
		services.WithHealthFs(a.fs))

	a.Services = &ServiceContainer{
		Sources: resolver,
		Actions: actions,
		Health:  health,
	}
	return nil
}

// setupRouter builds the middleware chain and mounts every handler.
// Order: RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.StripSlashes)
	r.Use(customMiddleware.DefaultSecureHeaders().Handler)

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

	validator := customMiddleware.NewValidator(a.Logger)

	actionsHandler := handlers.NewActionsHandler(a.Services.Actions, validator, a.ErrorHandler, a.Logger)
	streamHandler := handlers.NewStreamHandler(a.Services.Actions, validator, a.ErrorHandler,
		a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Metrics, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)

	r.Mount(config.APIBasePath+"/data-sources", actionsHandler.Routes())
	r.Mount(config.APIBasePath, healthHandler.Routes())
	r.Mount(config.WebSocketPrefix, streamHandler.Routes())
	r.Handle(config.MetricsEndpoint, handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	a.Router = r
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server. WriteTimeout stays at the configured
// value; zero keeps long streams and websocket sessions open.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts serving in the background. A listener failure cancels ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("data_dir", a.Config.GetDataDir()),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
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

// Run serves until SIGINT or SIGTERM, then shuts down gracefully
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.InfoContext(ctx, "Received interrupt signal")

	return a.Stop(ctx)
}

// performStartupHealthCheck reports a data directory that cannot be served
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	status := a.Services.Health.ReadinessCheck(ctx)
	if status.Status == "ready" {
		return nil
	}

	var errs []error
	for name, svc := range status.Services {
		if svc.Status != "ready" {
			errs = append(errs, fmt.Errorf("%s: %s", name, svc.Message))
		}
	}
	return errors.Join(errs...)
}
