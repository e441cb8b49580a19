// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/statuspulse/statuspulse/internal/catalog"
	catalogpostgres "github.com/statuspulse/statuspulse/internal/catalog/postgres"
	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/domain"
	"github.com/statuspulse/statuspulse/internal/identity"
	"github.com/statuspulse/statuspulse/internal/identity/jwt"
	identitypostgres "github.com/statuspulse/statuspulse/internal/identity/postgres"
	"github.com/statuspulse/statuspulse/internal/incidents"
	incidentspostgres "github.com/statuspulse/statuspulse/internal/incidents/postgres"
	"github.com/statuspulse/statuspulse/internal/notify"
	"github.com/statuspulse/statuspulse/internal/notify/email"
	notifypostgres "github.com/statuspulse/statuspulse/internal/notify/postgres"
	"github.com/statuspulse/statuspulse/internal/orgs"
	orgspostgres "github.com/statuspulse/statuspulse/internal/orgs/postgres"
	"github.com/statuspulse/statuspulse/internal/pkg/ctxlog"
	"github.com/statuspulse/statuspulse/internal/pkg/httputil"
	"github.com/statuspulse/statuspulse/internal/pkg/metrics"
	"github.com/statuspulse/statuspulse/internal/pkg/postgres"
	"github.com/statuspulse/statuspulse/internal/realtime"
	"github.com/statuspulse/statuspulse/internal/uptime"
	uptimepostgres "github.com/statuspulse/statuspulse/internal/uptime/postgres"
	"github.com/statuspulse/statuspulse/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc

	hub          *realtime.Hub
	scheduler    *uptime.Scheduler
	notifyWorker *notify.Worker
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	if cfg.Database.MigrationsPath != "" {
		if err := runMigrations(cfg.Database); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	router, err := app.setup(metricsCtx)
	if err != nil {
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	// Start main server
	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"build", version.String(),
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Stop background loops before the servers so no new work is produced
	// while connections drain.
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.notifyWorker != nil {
		a.notifyWorker.Stop()
	}

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.hub.Close()
	a.db.Close()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Hub returns the realtime hub. Used in tests to observe subscribers.
func (a *App) Hub() *realtime.Hub {
	return a.hub
}

// NotifyWorker returns the notification worker instance. Returns nil when
// notifications are disabled.
func (a *App) NotifyWorker() *notify.Worker {
	return a.notifyWorker
}

func (a *App) setup(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	a.hub = realtime.NewHub()

	identityRepo := identitypostgres.NewRepository(a.db)
	jwtAuth := jwt.NewAuthenticator(a.config.JWT.SecretKey, a.config.JWT.AccessTokenDuration)
	identityService := identity.NewService(identityRepo, jwtAuth)
	identityHandler := identity.NewHandler(identityService)

	orgsRepo := orgspostgres.NewRepository(a.db)
	orgsService := orgs.NewService(orgsRepo, identityService)
	orgsHandler := orgs.NewHandler(orgsService)

	var notifier *notify.Notifier
	if a.config.Notifications.Enabled {
		worker, n, err := a.setupNotifications(ctx, orgsService)
		if err != nil {
			return nil, err
		}
		a.notifyWorker = worker
		notifier = n
	} else {
		slog.Info("notifications disabled: status and incident emails will not be sent")
	}

	// Assign through concrete nil checks so a disabled notifier stays a
	// nil interface, which the services treat as "no notifications".
	var catalogNotifier catalog.StatusNotifier
	var incidentNotifier incidents.Notifier
	if notifier != nil {
		catalogNotifier = notifier
		incidentNotifier = notifier
	}

	catalogRepo := catalogpostgres.NewRepository(a.db)
	catalogService := catalog.NewService(catalogRepo, a.hub, catalogNotifier)
	catalogHandler := catalog.NewHandler(catalogService, orgsService)

	incidentsRepo := incidentspostgres.NewRepository(a.db)
	incidentsService := incidents.NewService(incidentsRepo, a.hub, incidentNotifier)
	incidentsHandler := incidents.NewHandler(incidentsService, orgsService)

	uptimeRepo := uptimepostgres.NewRepository(a.db)
	prober := uptime.NewProber(uptime.ProberConfig{
		Timeout:         a.config.Uptime.ProbeTimeout,
		MaxConcurrent:   a.config.Uptime.MaxConcurrentProbes,
		ProbesPerSecond: a.config.Uptime.ProbesPerSecond,
	}, uptimeRepo, a.hub)
	aggregator := uptime.NewAggregator(uptimeRepo, a.config.Uptime.ProbeInterval)
	uptimeService := uptime.NewService(uptimeRepo, prober, aggregator, catalogService)
	uptimeHandler := uptime.NewHandler(uptimeService)

	if a.config.Uptime.Enabled {
		a.scheduler = uptime.NewScheduler(prober, aggregator, uptimeRepo, a.config.Uptime.ProbeInterval)
		a.scheduler.Start(ctx)
	} else {
		slog.Info("uptime monitoring disabled: no probes will run")
	}

	realtimeHandler := realtime.NewHandler(a.hub, orgsService, a.config.CORS.AllowedOrigins)

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r)

		catalogHandler.RegisterPublicRoutes(r)
		incidentsHandler.RegisterPublicRoutes(r)
		realtimeHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(jwtAuth))

			identityHandler.RegisterProtectedRoutes(r)
			orgsHandler.RegisterRoutes(r)

			r.Route("/orgs/{slug}", func(r chi.Router) {
				r.Use(orgsService.RequireMember(domain.OrgRoleMember))

				orgsHandler.RegisterOrgRoutes(r)
				catalogHandler.RegisterRoutes(r)
				incidentsHandler.RegisterRoutes(r)
				uptimeHandler.RegisterRoutes(r)
			})
		})
	})

	return r, nil
}

func (a *App) setupNotifications(ctx context.Context, orgsService *orgs.Service) (*notify.Worker, *notify.Notifier, error) {
	sender, err := email.NewSender(email.Config{
		Enabled:      true,
		SMTPHost:     a.config.Notifications.SMTPHost,
		SMTPPort:     a.config.Notifications.SMTPPort,
		SMTPUser:     a.config.Notifications.SMTPUser,
		SMTPPassword: a.config.Notifications.SMTPPassword,
		FromAddress:  a.config.Notifications.FromAddress,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create email sender: %w", err)
	}

	renderer, err := notify.NewRenderer()
	if err != nil {
		return nil, nil, fmt.Errorf("create notification renderer: %w", err)
	}

	repo := notifypostgres.NewRepository(a.db)
	notifier := notify.NewNotifier(repo, orgsService)

	workerConfig := notify.DefaultWorkerConfig()
	workerConfig.BatchSize = a.config.Notifications.BatchSize
	workerConfig.PollInterval = a.config.Notifications.PollInterval
	workerConfig.MaxAttempts = a.config.Notifications.MaxAttempts

	worker := notify.NewWorker(workerConfig, repo, sender, renderer, email.IsRetryable)
	worker.Start(ctx)

	return worker, notifier, nil
}

func runMigrations(cfg config.DatabaseConfig) error {
	migrator, err := migrate.New("file://"+cfg.MigrationsPath, cfg.URL)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	slog.Info("database migrations applied", "path", cfg.MigrationsPath)
	return nil
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.SnapshotDBPool(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.SnapshotDBPool(a.db)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
