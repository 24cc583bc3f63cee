package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/config"
	"github.com/simp-lee/gymadmin/internal/i18n"
	"github.com/simp-lee/gymadmin/internal/metrics"
	"github.com/simp-lee/gymadmin/internal/middleware"
	"github.com/simp-lee/gymadmin/internal/pkg"
	"github.com/simp-lee/gymadmin/web"
)

// Module mounts its routes on the API group and the dashboard page group.
// Either group may be ignored.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup)
}

// HealthCheck reports whether a dependency answers within ctx.
type HealthCheck func(ctx context.Context) error

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules    []Module
	DB         *gorm.DB
	Mode       string // "debug" or "release"
	CSRFSecret string
	Catalog    *i18n.Catalog
	// Web holds static/ and templates/. Defaults to the embedded tree.
	Web fs.FS
	// DefaultLocale is used when neither ?lang, the cookie nor
	// Accept-Language pick one.
	DefaultLocale string
	// Verifier turns on bearer-token auth for the API when set.
	Verifier    middleware.TokenVerifier
	PublicPaths []string
	RateLimit   config.RateLimitConfig
	// MetricsPath exposes Prometheus metrics when not empty.
	MetricsPath string
	// HealthChecks are reported by /health next to the database.
	HealthChecks map[string]HealthCheck
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	switch {
	case r == nil:
		return errors.New("router is nil")
	case deps == nil:
		return errors.New("route dependencies are nil")
	case len(deps.Modules) == 0:
		return errors.New("at least one module is required")
	case strings.TrimSpace(deps.CSRFSecret) == "":
		return errors.New("csrf secret is required")
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = i18n.Default()
	}
	webFS := deps.Web
	if webFS == nil {
		webFS = web.EmbeddedFS
	}
	locale := middleware.Locale(deps.DefaultLocale)

	static, err := staticHandler(webFS, deps.Mode != gin.DebugMode)
	if err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}
	r.GET("/static/*filepath", static)

	checks := map[string]HealthCheck{"database": databaseCheck(deps.DB)}
	for name, check := range deps.HealthChecks {
		checks[name] = check
	}
	r.GET("/health", healthHandler(checks))
	if deps.MetricsPath != "" {
		r.GET(deps.MetricsPath, gin.WrapH(metrics.Handler()))
	}
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})

	// The API authenticates with bearer tokens; pages with the CSRF cookie.
	api := r.Group("/api/v1", locale)
	pages := r.Group("/", locale)
	if rl := deps.RateLimit; rl.Enabled {
		api.Use(middleware.RateLimit(rl.RPS, rl.Burst))
		pages.Use(middleware.RateLimit(rl.RPS, rl.Burst))
	}
	if deps.Verifier != nil {
		api.Use(middleware.Auth(deps.Verifier, deps.PublicPaths))
	}
	pages.Use(middleware.CSRF(deps.CSRFSecret))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api, pages)
	}

	r.NoRoute(locale, noRouteHandler(catalog))
	return nil
}

func databaseCheck(db *gorm.DB) HealthCheck {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("no database")
		}
		return config.PingDatabase(ctx, db)
	}
}

// healthHandler runs every check concurrently under a one second budget.
// Any failure turns the answer into 503 "degraded".
func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		failed := make([]error, len(names))
		var g errgroup.Group
		for i, name := range names {
			g.Go(func() error {
				failed[i] = checks[name](ctx)
				return nil
			})
		}
		_ = g.Wait()

		status, code := "ok", http.StatusOK
		components := make(gin.H, len(names))
		for i, name := range names {
			components[name] = "ok"
			if failed[i] != nil {
				components[name] = "error"
				status, code = "degraded", http.StatusServiceUnavailable
				_ = c.Error(fmt.Errorf("health %s: %w", name, failed[i]))
			}
		}
		c.JSON(code, gin.H{"status": status, "components": components})
	}
}

// noRouteHandler answers unknown API paths with the JSON envelope and
// everything else with the 404 page.
func noRouteHandler(catalog *i18n.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, pkg.Response{
				Code:    http.StatusNotFound,
				Message: catalog.Localized("errors.not_found"),
			})
			return
		}
		renderError(c, catalog, http.StatusNotFound, "errors.page_not_found")
	}
}

// staticHandler serves webFS/static under /static. Cached responses are
// kept by browsers for a day.
func staticHandler(webFS fs.FS, cache bool) (gin.HandlerFunc, error) {
	sub, err := fs.Sub(webFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub filesystem: %w", err)
	}
	files := http.StripPrefix("/static", http.FileServer(http.FS(sub)))
	return func(c *gin.Context) {
		if cache {
			c.Header("Cache-Control", "public, max-age=86400")
		}
		files.ServeHTTP(c.Writer, c.Request)
	}, nil
}
