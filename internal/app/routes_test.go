package app

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/simp-lee/gymadmin/internal/config"
	"github.com/simp-lee/gymadmin/internal/domain"
	"github.com/simp-lee/gymadmin/internal/i18n"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

// --- test helpers ---

// routeTestFS returns a minimal template filesystem for route handler tests.
func routeTestFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/layouts/base.html": &fstest.MapFile{
			Data: []byte(`{{ define "base" }}{{ block "content" . }}{{ end }}{{ end }}`),
		},
		"templates/partials/nav.html": &fstest.MapFile{
			Data: []byte(`{{ define "nav" }}{{ end }}`),
		},
		"templates/errors/404.html": &fstest.MapFile{
			Data: []byte(`{{ template "base" . }}{{ define "content" }}404{{ end }}`),
		},
		"templates/errors/500.html": &fstest.MapFile{
			Data: []byte(`{{ template "base" . }}{{ define "content" }}500{{ end }}`),
		},
	}
}

// setupTestRouter creates a gin.Engine with the route-test template renderer.
func setupTestRouter() *gin.Engine {
	r := gin.New()
	renderer, err := NewTemplateRenderer(routeTestFS(), true)
	if err != nil {
		panic("setup renderer: " + err.Error())
	}
	r.HTMLRender = renderer
	return r
}

// --- Health check tests ---

func TestHealthHandler_OK(t *testing.T) {
	r := gin.New()

	// Use a real SQLite in-memory DB for a passing ping.
	db := openTestSQLiteDB(t)

	r.GET("/health", healthHandler(map[string]HealthCheck{"database": databaseCheck(db)}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	comps, ok := body["components"].(map[string]any)
	if !ok {
		t.Fatal("missing components")
	}
	if comps["database"] != "ok" {
		t.Errorf("expected database ok, got %v", comps["database"])
	}
}

func TestHealthHandler_DBDown(t *testing.T) {
	r := gin.New()

	db := openTestSQLiteDB(t)
	// Close the underlying sql.DB so Ping fails.
	sqlDB, _ := db.DB()
	sqlDB.Close()

	r.GET("/health", healthHandler(map[string]HealthCheck{"database": databaseCheck(db)}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("expected status degraded, got %v", body["status"])
	}
	comps := body["components"].(map[string]any)
	if comps["database"] != "error" {
		t.Errorf("expected database error, got %v", comps["database"])
	}
}

func TestHealthHandler_UsesRequestContextTimeout(t *testing.T) {
	registerBlockingPingDriver()

	sqlDB, err := sql.Open(blockingPingDriverName, "")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	r := gin.New()
	r.GET("/health", healthHandler(map[string]HealthCheck{"database": databaseCheck(db)}))

	reqCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	t.Cleanup(cancel)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(reqCtx)

	start := time.Now()
	r.ServeHTTP(w, req)
	elapsed := time.Since(start)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if elapsed > 300*time.Millisecond {
		t.Fatalf("expected health response to honor request context timeout, elapsed=%v", elapsed)
	}
}

// --- NoRoute handler tests ---

func assertLocalizedNotFound(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := i18n.Default().Localized("errors.not_found")
	if body.Message != want {
		t.Errorf("message = %+v, want %+v", body.Message, want)
	}
	if body.Data != nil {
		t.Errorf("expected data nil, got %v", body.Data)
	}
}

func TestNoRouteHandler_JSON(t *testing.T) {
	r := setupTestRouter()
	r.NoRoute(noRouteHandler(i18n.Default()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	req.Header.Set("Accept", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Message != i18n.Default().Localized("errors.page_not_found") {
		t.Errorf("unexpected message %+v", body.Message)
	}
}

func TestNoRouteHandler_HTML(t *testing.T) {
	r := setupTestRouter()
	r.NoRoute(noRouteHandler(i18n.Default()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	req.Header.Set("Accept", "text/html")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "404") {
		t.Errorf("expected HTML to contain '404', got %q", body)
	}
}

func TestNoRouteHandler_HTMLWildcardAccept(t *testing.T) {
	r := setupTestRouter()
	r.NoRoute(noRouteHandler(i18n.Default()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	req.Header.Set("Accept", "*/*")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "404") {
		t.Errorf("expected HTML to contain '404', got %q", w.Body.String())
	}
}

func TestNoRouteHandler_APIPath_PrefersJSON(t *testing.T) {
	r := setupTestRouter()
	r.NoRoute(noRouteHandler(i18n.Default()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	req.Header.Set("Accept", "*/*")
	r.ServeHTTP(w, req)

	assertLocalizedNotFound(t, w)
}

// --- Static routes tests ---

func TestStaticHandler(t *testing.T) {
	webFS := fstest.MapFS{
		"static/css/app.css": &fstest.MapFile{Data: []byte("body{}")},
	}
	tests := []struct {
		name      string
		cache     bool
		wantCache string
	}{
		{"release caches for a day", true, "public, max-age=86400"},
		{"debug does not cache", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := staticHandler(webFS, tt.cache)
			if err != nil {
				t.Fatalf("staticHandler() error: %v", err)
			}
			r := gin.New()
			r.GET("/static/*filepath", h)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
			if w.Code != http.StatusOK || w.Body.String() != "body{}" {
				t.Fatalf("got %d %q", w.Code, w.Body.String())
			}
			if got := w.Header().Get("Cache-Control"); got != tt.wantCache {
				t.Errorf("Cache-Control = %q, want %q", got, tt.wantCache)
			}

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))
			if w.Code != http.StatusNotFound {
				t.Errorf("missing asset status = %d, want 404", w.Code)
			}
		})
	}
}

func TestRegisterRoutes_ServesEmbeddedStatic(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{Mode: gin.ReleaseMode})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("Cache-Control") == "" {
		t.Error("release mode should cache static assets")
	}
}

// --- RegisterRoutes validation tests ---

// mockModule implements Module for testing.
type mockModule struct {
	called bool
}

func (m *mockModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	m.called = true
}

func TestRegisterRoutes_NilRouter(t *testing.T) {
	err := RegisterRoutes(nil, &RouteDeps{})
	if err == nil || !strings.Contains(err.Error(), "router is nil") {
		t.Fatalf("expected 'router is nil' error, got %v", err)
	}
}

func TestRegisterRoutes_NilDeps(t *testing.T) {
	r := setupTestRouter()
	err := RegisterRoutes(r, nil)
	if err == nil || !strings.Contains(err.Error(), "route dependencies are nil") {
		t.Fatalf("expected 'route dependencies are nil' error, got %v", err)
	}
}

func TestRegisterRoutes_NoModules(t *testing.T) {
	r := setupTestRouter()
	err := RegisterRoutes(r, &RouteDeps{
		CSRFSecret: "test-secret-32-chars-long-enough",
	})
	if err == nil || !strings.Contains(err.Error(), "at least one module is required") {
		t.Fatalf("expected 'at least one module is required' error, got %v", err)
	}
}

func TestRegisterRoutes_EmptyCSRF(t *testing.T) {
	r := setupTestRouter()
	err := RegisterRoutes(r, &RouteDeps{
		Modules:    []Module{&mockModule{}},
		CSRFSecret: "",
	})
	if err == nil || !strings.Contains(err.Error(), "csrf secret is required") {
		t.Fatalf("expected 'csrf secret is required' error, got %v", err)
	}
}

func TestRegisterRoutes_ModulesAreCalled(t *testing.T) {
	m := &mockModule{}
	r := setupTestRouter()
	err := RegisterRoutes(r, &RouteDeps{
		Modules:    []Module{m},
		DB:         openTestSQLiteDB(t),
		Mode:       "debug",
		CSRFSecret: "test-secret-32-chars-long-enough",
	})
	if err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	if !m.called {
		t.Error("expected module RegisterRoutes to be called")
	}
}

func TestRegisterRoutes_NilModuleEntry(t *testing.T) {
	r := setupTestRouter()
	err := RegisterRoutes(r, &RouteDeps{
		Modules:    []Module{&mockModule{}, nil},
		DB:         openTestSQLiteDB(t),
		Mode:       "debug",
		CSRFSecret: "test-secret-32-chars-long-enough",
	})
	if err == nil {
		t.Fatal("expected error for nil module entry, got nil")
	}
	if !strings.Contains(err.Error(), "module at index 1 is nil") {
		t.Fatalf("expected indexed nil-module error, got %v", err)
	}
}

func TestNoRouteHandler_APIv1Path_PrefersJSON(t *testing.T) {
	r := setupTestRouter()
	r.NoRoute(noRouteHandler(i18n.Default()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	req.Header.Set("Accept", "*/*")
	r.ServeHTTP(w, req)

	assertLocalizedNotFound(t, w)
}

// TestNoRouteHandler_JSONWithWildcardAccept verifies that a non-/api/ path with
// Accept: application/json, */* receives a JSON 404 response, not HTML.
// The JSON guard runs before acceptsHTML so that */* does not win for explicit
// JSON clients.
func TestNoRouteHandler_JSONWithWildcardAccept(t *testing.T) {
	r := setupTestRouter()
	r.NoRoute(noRouteHandler(i18n.Default()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	req.Header.Set("Accept", "application/json, */*")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		t.Errorf("expected JSON Content-Type, got %q", ct)
	}
}

// TestNoRouteHandler_ExactAPIPath_WithWildcardAccept: "/api" without a
// trailing slash is not an API path and gets the HTML 404 page.
func TestNoRouteHandler_ExactAPIPath_WithWildcardAccept(t *testing.T) {
	r := setupTestRouter()
	r.NoRoute(noRouteHandler(i18n.Default()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Accept", "*/*")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	// */* matches acceptsHTML, so expect HTML.
	body := w.Body.String()
	if !strings.Contains(body, "404") {
		t.Errorf("expected HTML 404 page, got %q", body)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "text/html") {
		t.Errorf("expected HTML Content-Type, got %q", ct)
	}
}

// --- Full route table tests ---

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (domain.Principal, error) {
	if token != "good" {
		return domain.Principal{}, errors.New("bad token")
	}
	return domain.Principal{UserID: 1, Role: domain.RoleAdmin}, nil
}

// probeModule registers one API and one page route.
type probeModule struct{}

func (probeModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	api.GET("/members", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"locale": pkg.Locale(c)})
	})
	api.POST("/auth/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	pages.POST("/dashboard/refresh", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
}

func newRoutedEngine(t *testing.T, deps RouteDeps) *gin.Engine {
	t.Helper()
	r := setupTestRouter()
	if deps.Modules == nil {
		deps.Modules = []Module{probeModule{}}
	}
	if deps.CSRFSecret == "" {
		deps.CSRFSecret = "test-secret-32-chars-long-enough"
	}
	if deps.Mode == "" {
		deps.Mode = "debug"
	}
	if err := RegisterRoutes(r, &deps); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return r
}

func TestRegisterRoutes_RootRedirectsToDashboard(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("Location = %q, want /dashboard", loc)
	}
}

func TestRegisterRoutes_APINegotiatesLocale(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{DefaultLocale: "en"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
	req.Header.Set("Accept-Language", "ar-EG,ar;q=0.9")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"locale":"ar"`) {
		t.Fatalf("expected Arabic locale, got %s", w.Body.String())
	}
}

func TestRegisterRoutes_APIWithoutVerifierIsOpen(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/members", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 without auth, got %d", w.Code)
	}
}

func TestRegisterRoutes_APIRequiresBearerToken(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{
		Verifier:    stubVerifier{},
		PublicPaths: []string{"/api/v1/auth/"},
	})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"missing token", http.MethodGet, "/api/v1/members", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/members", "nope", http.StatusUnauthorized},
		{"good token", http.MethodGet, "/api/v1/members", "good", http.StatusOK},
		{"public prefix", http.MethodPost, "/api/v1/auth/login", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRegisterRoutes_PagesRequireCSRF(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{Verifier: stubVerifier{}})

	// Page routes are not behind bearer auth but reject unsafe requests
	// without a CSRF token.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/dashboard/refresh", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d", w.Code)
	}
}

func TestRegisterRoutes_APIIsNotCSRFProtected(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for API POST, got %d", w.Code)
	}
}

func TestRegisterRoutes_RateLimit(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{
		RateLimit: config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1},
	})

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/members", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK {
		t.Fatalf("first request = %d, want 200", codes[0])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429 (codes %v)", codes[2], codes)
	}
}

func TestRegisterRoutes_MetricsEndpoint(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{MetricsPath: "/metrics"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "# HELP") {
		t.Fatalf("expected Prometheus exposition format, got %q", w.Body.String())
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when metrics are disabled, got %d", w.Code)
	}
}

// --- health checks beyond the database ---

func TestHealthHandler_ReportsEveryCheck(t *testing.T) {
	checks := map[string]HealthCheck{
		"database": databaseCheck(openTestSQLiteDB(t)),
		"events":   func(context.Context) error { return errors.New("redis down") },
	}
	r := gin.New()
	r.GET("/health", healthHandler(checks))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status != "degraded" || body.Components["database"] != "ok" || body.Components["events"] != "error" {
		t.Fatalf("body = %+v", body)
	}
}

func TestHealthHandler_NoDatabase(t *testing.T) {
	r := gin.New()
	r.GET("/health", healthHandler(map[string]HealthCheck{"database": databaseCheck(nil)}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestRegisterRoutes_HealthIncludesExtraChecks(t *testing.T) {
	r := newRoutedEngine(t, RouteDeps{
		DB: openTestSQLiteDB(t),
		HealthChecks: map[string]HealthCheck{
			"events": func(context.Context) error { return nil },
		},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"events":"ok"`) {
		t.Fatalf("body %s misses the events check", w.Body.String())
	}
}

// --- openTestSQLiteDB helper ---

func openTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db
}

const blockingPingDriverName = "gymadmin_blocking_ping"

var registerBlockingPingDriverOnce sync.Once

func registerBlockingPingDriver() {
	registerBlockingPingDriverOnce.Do(func() {
		sql.Register(blockingPingDriverName, blockingPingDriver{})
	})
}

type blockingPingDriver struct{}

func (blockingPingDriver) Open(string) (driver.Conn, error) {
	return blockingPingConn{}, nil
}

type blockingPingConn struct{}

func (blockingPingConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (blockingPingConn) Close() error                        { return nil }
func (blockingPingConn) Begin() (driver.Tx, error)           { return blockingPingTx{}, nil }

func (blockingPingConn) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type blockingPingTx struct{}

func (blockingPingTx) Commit() error   { return nil }
func (blockingPingTx) Rollback() error { return nil }
