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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bissquit/statusboard/internal/catalog"
	catalogpostgres "github.com/bissquit/statusboard/internal/catalog/postgres"
	"github.com/bissquit/statusboard/internal/config"
	"github.com/bissquit/statusboard/internal/domain"
	"github.com/bissquit/statusboard/internal/identity"
	"github.com/bissquit/statusboard/internal/identity/jwt"
	identitypostgres "github.com/bissquit/statusboard/internal/identity/postgres"
	"github.com/bissquit/statusboard/internal/incidents"
	incidentspostgres "github.com/bissquit/statusboard/internal/incidents/postgres"
	"github.com/bissquit/statusboard/internal/notifications"
	"github.com/bissquit/statusboard/internal/notifications/mattermost"
	"github.com/bissquit/statusboard/internal/notifications/slack"
	"github.com/bissquit/statusboard/internal/pkg/ctxlog"
	"github.com/bissquit/statusboard/internal/pkg/httputil"
	"github.com/bissquit/statusboard/internal/pkg/metrics"
	"github.com/bissquit/statusboard/internal/pkg/postgres"
	"github.com/bissquit/statusboard/internal/status"
	"github.com/bissquit/statusboard/internal/statuspage"
	"github.com/bissquit/statusboard/internal/uptime"
	"github.com/bissquit/statusboard/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	statusPage    *statuspage.Service
	notifier      *notifications.Notifier
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return NewWithPool(cfg, logger, db)
}

// NewWithPool builds the application on an existing pool. The app owns the pool afterwards.
func NewWithPool(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool) (*App, error) {
	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	go metrics.CollectDBMetrics(metricsCtx, db, incidentspostgres.NewRepository(db), 15*time.Second)

	router, err := app.setupRouter()
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
	a.statusPage.Start()

	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
// In-flight notifications are delivered before the database pool closes.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	for name, srv := range map[string]*http.Server{"server": a.server, "metrics server": a.metricsServer} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("shutdown %s: %w", name, err))
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	a.statusPage.Stop()
	a.Close()

	return errors.Join(errs...)
}

// Close waits for pending notifications and releases the database pool.
func (a *App) Close() {
	if a.notifier != nil {
		a.notifier.Wait()
	}
	a.db.Close()
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Notifier returns the webhook notifier, or nil when notifications are disabled.
func (a *App) Notifier() *notifications.Notifier {
	return a.notifier
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	catalogRepo := catalogpostgres.NewRepository(a.db)
	incidentsRepo := incidentspostgres.NewRepository(a.db)
	identityRepo := identitypostgres.NewRepository(a.db)

	aggregator := uptime.NewAggregator(catalogRepo, incidentsRepo)
	incidentsService := incidents.NewService(incidentsRepo, catalogRepo)

	a.statusPage = statuspage.NewService(identityRepo, catalogRepo, aggregator, incidentsService, statuspage.Config{
		CacheTTL:           a.config.StatusPage.CacheTTL,
		DefaultWindowHours: a.config.StatusPage.DefaultWindowHours,
	})

	notifiers := []status.ChangeNotifier{a.statusPage}

	slog.Info("notifications configured", "enabled", a.config.Notifications.Enabled)
	if a.config.Notifications.Enabled {
		renderer, err := notifications.NewRenderer()
		if err != nil {
			return nil, fmt.Errorf("create notification renderer: %w", err)
		}

		// Webhook URLs are set per company, so both senders are always available.
		a.notifier = notifications.NewNotifier(identityRepo, renderer,
			notifications.Config{
				RetryAttempts: a.config.Notifications.RetryAttempts,
				RetryInterval: a.config.Notifications.RetryInterval,
			},
			mattermost.NewSender(mattermost.Config{
				Username: a.config.Notifications.Username,
				IconURL:  a.config.Notifications.IconURL,
				Timeout:  a.config.Notifications.Timeout,
			}),
			slack.NewSender(slack.Config{
				Username: a.config.Notifications.Username,
				IconURL:  a.config.Notifications.IconURL,
				Timeout:  a.config.Notifications.Timeout,
			}),
		)
		notifiers = append(notifiers, a.notifier)
	}

	jwtAuth, err := jwt.NewAuthenticator(jwt.Config{
		Secret: a.config.JWT.SecretKey,
		Issuer: a.config.JWT.Issuer,
		TTL:    a.config.JWT.AccessTokenDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}

	identityService := identity.NewService(identityRepo, jwtAuth, a.statusPage)
	catalogService := catalog.NewService(catalogRepo, a.statusPage)
	engine := status.NewEngine(catalogRepo, incidentsRepo, notifiers...)

	identityHandler := identity.NewHandler(identityService)
	catalogHandler := catalog.NewHandler(catalogService)
	statusHandler := status.NewHandler(engine)
	incidentsHandler := incidents.NewHandler(incidentsService)
	uptimeHandler := uptime.NewHandler(aggregator)
	statusPageHandler := statuspage.NewHandler(a.statusPage, httputil.NewRateLimiter(httputil.RateLimitConfig{
		RequestsPerSecond: a.config.StatusPage.RateLimit,
		Burst:             a.config.StatusPage.RateBurst,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r)
		statusPageHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(jwtAuth))

			identityHandler.RegisterProtectedRoutes(r)
			catalogHandler.RegisterRoutes(r)
			statusHandler.RegisterRoutes(r)
			incidentsHandler.RegisterRoutes(r)
			uptimeHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin))
				identityHandler.RegisterAdminRoutes(r)
			})
		})
	})

	return r, nil
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
	httputil.JSON(w, http.StatusOK, version.Get())
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
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

	return slog.New(handler)
}
