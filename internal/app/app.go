package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/simp-lee/logger"
	"github.com/simp-lee/rbac"
	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/admin"
	"github.com/simp-lee/gymadmin/internal/apiclient"
	"github.com/simp-lee/gymadmin/internal/config"
	"github.com/simp-lee/gymadmin/internal/dashboard"
	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/i18n"
	"github.com/simp-lee/gymadmin/internal/middleware"
	"github.com/simp-lee/gymadmin/internal/module/auth"
	"github.com/simp-lee/gymadmin/internal/module/gym"
	"github.com/simp-lee/gymadmin/web"
)

// serviceTokenTTL is the lifetime of the token the dashboard uses to call
// the API when auth is enabled. It is issued again on every start.
const serviceTokenTTL = 365 * 24 * time.Hour

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine  *gin.Engine
	db      *gorm.DB
	logger  *logger.Logger
	cfg     *config.Config
	closers []func() error
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, timeout time.Duration) httpServer {
	readTimeout, writeTimeout := 30*time.Second, 60*time.Second
	if timeout > 0 {
		readTimeout, writeTimeout = timeout, timeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// The REST API (auth and the gym resources) and the dashboard run in one
// process; the dashboard reads the API over HTTP like any other client.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	success := false
	var closers []func() error
	defer func() {
		if !success {
			closeAll(closers)
		}
	}()

	// 1. Logger.
	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	closers = append(closers, log.Close)

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 may expose debug behavior and permissive CORS")
	}

	// 2. Database.
	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	closers = append(closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	ctx := context.Background()
	if cfg.Server.Mode == gin.DebugMode || cfg.Database.AutoMigrate {
		if err := config.MigrateDatabase(ctx, db, domain.Models()...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("auto migration completed")
	}
	if cfg.Database.Seed {
		if err := gym.SeedStaticContent(ctx, db); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	// 3. API modules.
	gymModule, _ := gym.NewModule(db)
	modules := []Module{gymModule}

	var (
		verifier     middleware.TokenVerifier
		serviceToken string
	)
	if cfg.Auth.Enabled {
		tokens, err := auth.NewTokens(cfg.Auth.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("setup tokens: %w", err)
		}
		closers = append(closers, func() error { tokens.Close(); return nil })

		var policy domain.Authorizer
		if cfg.Auth.RBAC.Enabled {
			p, err := newPolicy(db, &cfg.Auth.RBAC.Cache)
			if err != nil {
				return nil, fmt.Errorf("setup rbac: %w", err)
			}
			closers = append(closers, p.Close)
			gymModule.Guard(p)
			policy = p
		}

		expiry, _ := time.ParseDuration(cfg.Auth.TokenExpiry)
		svc := auth.NewService(tokens, auth.NewUserRepository(db), policy, expiry)
		modules = append(modules, auth.NewHandler(svc))
		verifier = tokens

		serviceToken, _, err = tokens.Issue(0, domain.RoleAdmin, serviceTokenTTL)
		if err != nil {
			return nil, fmt.Errorf("issue dashboard token: %w", err)
		}
	}

	// 4. Dashboard.
	bus, closeBus, err := newEventBus(ctx, &cfg.Dashboard.Events, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup event bus: %w", err)
	}
	if closeBus != nil {
		closers = append(closers, closeBus)
	}

	client, err := apiclient.New(apiclient.Config{
		BaseURL: resolveAPIBaseURL(cfg),
		Timeout: cfg.Dashboard.APITimeoutDuration(),
		Token:   serviceToken,
	}, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup api client: %w", err)
	}

	catalog := i18n.Default()
	dash, err := dashboard.NewHandler(dashboard.Deps{
		Backend:  client,
		Cache:    newQueryCache(cfg.Server.Cache),
		Bus:      bus,
		Catalog:  catalog,
		PageSize: cfg.Dashboard.PageSize,
		Debounce: cfg.Dashboard.SearchDebounceDuration(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("setup dashboard: %w", err)
	}
	dashModule := dashboard.NewModule(dash)
	closers = append(closers, func() error { dashModule.Close(); return nil })
	modules = append(modules, dashModule)

	// 5. Gin engine with custom middleware (not gin.Default()).
	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	corsConfig := resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger, quietPaths(cfg)...),
		middleware.CORS(corsConfig),
	)
	if cfg.Metrics.Enabled {
		engine.Use(middleware.Metrics())
	}

	// 6. Templates.
	var fsys fs.FS
	if cfg.Server.Mode == gin.DebugMode {
		fsys, err = resolveDebugWebFS()
		if err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	} else {
		fsys = web.EmbeddedFS
	}

	renderer, err := NewTemplateRenderer(fsys, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	// 7. CSRF secret.
	csrfSecret := cfg.Server.CSRFSecret
	if isPlaceholderCSRFSecret(csrfSecret) {
		if cfg.Server.Mode == gin.ReleaseMode {
			return nil, errors.New("csrf_secret must be a non-placeholder value in release mode")
		}

		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate csrf secret: %w", err)
		}
		csrfSecret = hex.EncodeToString(b)
		log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
	}

	// 8. Routes.
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:       modules,
		DB:            db,
		Mode:          cfg.Server.Mode,
		CSRFSecret:    csrfSecret,
		Catalog:       catalog,
		DefaultLocale: cfg.Dashboard.DefaultLocale,
		Verifier:      verifier,
		PublicPaths:   cfg.Auth.PublicPaths,
		RateLimit:     cfg.Server.RateLimit,
		MetricsPath:   metricsPath,
		Web:           fsys,
		HealthChecks:  busHealthChecks(bus),
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine:  engine,
		db:      db,
		logger:  log,
		cfg:     cfg,
		closers: closers,
	}, nil
}

// newEventBus returns the in-process bus, or a redis pub/sub bus shared by
// every instance. The returned func releases the redis resources.
func newEventBus(ctx context.Context, cfg *config.EventsConfig, log *slog.Logger) (admin.EventBus, func() error, error) {
	if cfg.Driver != "redis" {
		return admin.NewLocalBus(), nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	bus, err := admin.NewRedisBus(subCtx, client, cfg.Redis.Channel, log)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("refresh events distributed through redis",
		slog.String("addr", cfg.Redis.Addr),
		slog.String("channel", cfg.Redis.Channel),
	)
	return bus, func() error {
		return errors.Join(bus.Close(), client.Close())
	}, nil
}

// newPolicy keeps role grants in the rbac_ tables of db behind a cache.
func newPolicy(db *gorm.DB, cfg *config.RBACCacheConfig) (*auth.Policy, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	role, userRole, perm := cfg.TTLs()
	return auth.NewPolicy(rbac.WithCachedStorage(sqlDB, &rbac.CacheConfig{
		RoleTTL:         role,
		UserRoleTTL:     userRole,
		PermTTL:         perm,
		MaxRoles:        cfg.MaxRoleEntries,
		MaxUserRoles:    cfg.MaxUserEntries,
		MaxUserPerms:    cfg.MaxPermissionEntries,
		CleanupInterval: min(role, userRole, perm),
	}))
}

// busHealthChecks reports the redis bus under "events"; the in-process bus
// has nothing to check.
func busHealthChecks(bus admin.EventBus) map[string]HealthCheck {
	if p, ok := bus.(interface{ Ping(context.Context) error }); ok {
		return map[string]HealthCheck{"events": p.Ping}
	}
	return nil
}

// newQueryCache builds the list cache. A disabled cache expires entries at
// once; concurrent identical loads still share one fetch.
func newQueryCache(cfg config.CacheConfig) *admin.QueryCache {
	if !cfg.Enabled {
		return admin.NewQueryCache(time.Nanosecond, 1)
	}
	ttl, _ := time.ParseDuration(cfg.TTL)
	return admin.NewQueryCache(ttl, cfg.MaxSize)
}

// quietPaths are path prefixes left out of the access log unless they fail.
func quietPaths(cfg *config.Config) []string {
	paths := []string{"/static/"}
	if cfg.Metrics.Enabled {
		paths = append(paths, cfg.Metrics.Path)
	}
	return paths
}

// resolveAPIBaseURL returns the configured API URL, or this server's own
// /api/v1 on the loopback address.
func resolveAPIBaseURL(cfg *config.Config) string {
	if cfg.Dashboard.APIBaseURL != "" {
		return cfg.Dashboard.APIBaseURL
	}
	host := cfg.Server.Host
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)) + "/api/v1"
}

func isPlaceholderCSRFSecret(secret string) bool {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return true
	}

	switch strings.ToLower(trimmed) {
	case "change-me-to-a-random-secret", "change-me-in-env", "change-me-csrf-secret":
		return true
	default:
		return false
	}
}

// resolveCORSConfig applies server.cors over the permissive defaults. In
// release mode an empty allowlist denies every cross-origin request.
func resolveCORSConfig(mode string, cfg config.CORSConfig) middleware.CORSConfig {
	out := middleware.DefaultCORSConfig()
	if len(cfg.AllowOrigins) > 0 {
		out.Origins = cfg.AllowOrigins
	} else if mode == gin.ReleaseMode {
		out.Origins = nil
	}
	if len(cfg.AllowMethods) > 0 {
		out.Methods = cfg.AllowMethods
	}
	if len(cfg.AllowHeaders) > 0 {
		out.Headers = cfg.AllowHeaders
	}
	out.Credentials = cfg.AllowCredentials
	if d, err := time.ParseDuration(cfg.MaxAge); err == nil && d > 0 {
		out.MaxAge = d
	}
	return out
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func resolveDebugWebFS() (fs.FS, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		webDir := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "web"))
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	exePath, err := os.Executable()
	if err == nil {
		webDir := filepath.Join(filepath.Dir(exePath), "web")
		if stat, err := os.Stat(webDir); err == nil && stat.IsDir() {
			return os.DirFS(webDir), nil
		}
	}

	return nil, errors.New("debug web directory not found")
}

// closeAll runs closers in reverse order of acquisition.
func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			slog.Error("close error", slog.Any("error", err))
		}
	}
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
// Shutdown waits up to 5 seconds for requests in flight, then releases the
// dashboard, the event bus, the database and the logger.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	timeout, _ := time.ParseDuration(a.cfg.Server.Timeout)
	srv := newHTTPServer(addr, a.engine, timeout)

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	log.Info("server stopped")
	closeAll(a.closers)

	return runErr
}
