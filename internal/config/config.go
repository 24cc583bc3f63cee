package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Auth      AuthConfig      `koanf:"auth"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string          `koanf:"host"`
	Port       int             `koanf:"port"`
	Mode       string          `koanf:"mode"`
	CSRFSecret string          `koanf:"csrf_secret"`
	Timeout    string          `koanf:"timeout"`
	CORS       CORSConfig      `koanf:"cors"`
	RateLimit  RateLimitConfig `koanf:"rate_limit"`
	Cache      CacheConfig     `koanf:"cache"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// CacheConfig holds settings for the dashboard's list query cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	TTL     string `koanf:"ttl"`
	MaxSize int    `koanf:"max_size"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`

	// AutoMigrate creates the tables on start. Debug mode always migrates.
	AutoMigrate bool `koanf:"auto_migrate"`

	// Seed inserts the default static pages on an empty database.
	Seed bool `koanf:"seed"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// AuthConfig holds authentication settings for the REST API.
type AuthConfig struct {
	Enabled     bool       `koanf:"enabled"`
	JWTSecret   string     `koanf:"jwt_secret"`
	TokenExpiry string     `koanf:"token_expiry"`
	PublicPaths []string   `koanf:"public_paths"`
	RBAC        RBACConfig `koanf:"rbac"`
}

// RBACConfig turns on role checks for API routes and account registration.
// Role assignments are stored in the database behind a cache.
type RBACConfig struct {
	Enabled bool            `koanf:"enabled"`
	Cache   RBACCacheConfig `koanf:"cache"`
}

// RBACCacheConfig bounds the cache in front of the role tables.
type RBACCacheConfig struct {
	RoleTTL              string `koanf:"role_ttl"`
	UserRoleTTL          string `koanf:"user_role_ttl"`
	PermissionTTL        string `koanf:"permission_ttl"`
	MaxRoleEntries       int    `koanf:"max_role_entries"`
	MaxUserEntries       int    `koanf:"max_user_entries"`
	MaxPermissionEntries int    `koanf:"max_permission_entries"`
}

// DashboardConfig holds settings for the back-office pages.
type DashboardConfig struct {
	// APIBaseURL is where the dashboard reaches the REST API. Empty means
	// the server's own address.
	APIBaseURL     string       `koanf:"api_base_url"`
	APITimeout     string       `koanf:"api_timeout"`
	PageSize       int          `koanf:"page_size"`
	SearchDebounce string       `koanf:"search_debounce"`
	DefaultLocale  string       `koanf:"default_locale"`
	Events         EventsConfig `koanf:"events"`
}

// EventsConfig selects how table refresh signals are distributed.
type EventsConfig struct {
	Driver string      `koanf:"driver"`
	Redis  RedisConfig `koanf:"redis"`
}

// RedisConfig holds the redis pub/sub connection used by the "redis" events driver.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Channel  string `koanf:"channel"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// envPrefix marks environment overrides. A double underscore separates
// levels and single underscores stay in the key, so
// APP__DATABASE__POOL__MAX_IDLE_CONNS sets database.pool.max_idle_conns.
const envPrefix = "APP__"

// Load reads the YAML file at configPath, overlays APP__ environment
// variables and validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, envPrefix)), "__", ".")
}

// Validate normalizes every section in place and rejects unsupported or
// inconsistent values.
func (c *Config) Validate() error {
	mode := strings.TrimSpace(c.Server.Mode)
	if err := oneOf("server.mode", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode); err != nil {
		return err
	}
	c.Server.Mode = mode
	release := mode == gin.ReleaseMode

	for _, check := range []func() error{
		c.Server.validate,
		func() error { return c.Database.validate(release) },
		func() error { return c.Auth.validate(release) },
		c.Log.validate,
		c.Dashboard.validate,
		c.Metrics.validate,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", s.Port)
	}
	if s.Host = strings.TrimSpace(s.Host); s.Host == "" {
		return errors.New("server.host is required")
	}
	if err := checkDuration("server.timeout", &s.Timeout, false); err != nil {
		return err
	}
	if err := checkDuration("server.cors.max_age", &s.CORS.MaxAge, false); err != nil {
		return err
	}
	if rl := s.RateLimit; rl.Enabled {
		if rl.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %v: must be positive when rate limiting is enabled", rl.RPS)
		}
		if rl.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", rl.Burst)
		}
	}
	s.Cache.TTL = strings.TrimSpace(s.Cache.TTL)
	if s.Cache.Enabled {
		if err := checkDuration("server.cache.ttl", &s.Cache.TTL, true); err != nil {
			return err
		}
		if s.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid server.cache.max_size %d: must be positive when caching is enabled", s.Cache.MaxSize)
		}
	}
	return nil
}

func (d *DatabaseConfig) validate(release bool) error {
	if err := oneOf("database.driver", d.Driver, "sqlite", "postgres"); err != nil {
		return err
	}
	if err := checkDuration("database.pool.conn_max_lifetime", &d.Pool.ConnMaxLifetime, false); err != nil {
		return err
	}
	if d.Driver == "sqlite" {
		if d.SQLite.Path = strings.TrimSpace(d.SQLite.Path); d.SQLite.Path == "" {
			return errors.New("database.sqlite.path is required when driver is sqlite")
		}
		return nil
	}

	pg := &d.Postgres
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"host", &pg.Host},
		{"user", &pg.User},
		{"dbname", &pg.DBName},
	} {
		if *f.value = strings.TrimSpace(*f.value); *f.value == "" {
			return fmt.Errorf("database.postgres.%s is required when driver is postgres", f.name)
		}
	}
	if pg.Port < 1 || pg.Port > 65535 {
		return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
	}
	pg.SSLMode = strings.TrimSpace(pg.SSLMode)
	if err := oneOf("database.postgres.sslmode", pg.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full"); err != nil {
		return err
	}
	if release {
		if err := oneOf("database.postgres.sslmode", pg.SSLMode, "require", "verify-ca", "verify-full"); err != nil {
			return fmt.Errorf("%w for server.mode %q", err, gin.ReleaseMode)
		}
	}
	return nil
}

// requiredPublicPaths must stay reachable without a token, or nobody could
// ever obtain one.
var requiredPublicPaths = []string{"/api/v1/auth/login", "/api/v1/auth/register"}

func (a *AuthConfig) validate(release bool) error {
	if !a.Enabled {
		if a.RBAC.Enabled {
			return errors.New("auth.rbac.enabled requires auth.enabled to be true")
		}
		return nil
	}
	a.JWTSecret = strings.TrimSpace(a.JWTSecret)
	switch {
	case a.JWTSecret == "":
		return errors.New("auth.jwt_secret is required when auth is enabled")
	case len(a.JWTSecret) < 32:
		return errors.New("invalid auth.jwt_secret: must be at least 32 characters")
	case release && CountSecretClasses(a.JWTSecret) < 3:
		return errors.New("auth.jwt_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
	}

	if strings.TrimSpace(a.TokenExpiry) == "" {
		return errors.New("auth.token_expiry is required when auth is enabled")
	}
	if err := checkDuration("auth.token_expiry", &a.TokenExpiry, true); err != nil {
		return err
	}

	paths := make([]string, 0, len(a.PublicPaths))
	for i, p := range a.PublicPaths {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			return fmt.Errorf("auth.public_paths[%d] cannot be empty when auth is enabled", i)
		case !strings.HasPrefix(p, "/"):
			return fmt.Errorf("invalid auth.public_paths[%d] %q: must start with '/'", i, a.PublicPaths[i])
		case !slices.Contains(paths, p):
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return errors.New("auth.public_paths is required when auth is enabled")
	}
	for _, p := range requiredPublicPaths {
		if !slices.Contains(paths, p) {
			return fmt.Errorf("auth.public_paths must include %q when auth is enabled", p)
		}
	}
	a.PublicPaths = paths
	return a.RBAC.validate()
}

func (r *RBACConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	c := &r.Cache
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"auth.rbac.cache.role_ttl", &c.RoleTTL},
		{"auth.rbac.cache.user_role_ttl", &c.UserRoleTTL},
		{"auth.rbac.cache.permission_ttl", &c.PermissionTTL},
	} {
		if strings.TrimSpace(*f.value) == "" {
			return fmt.Errorf("%s is required when RBAC is enabled", f.name)
		}
		if err := checkDuration(f.name, f.value, true); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"auth.rbac.cache.max_role_entries", c.MaxRoleEntries},
		{"auth.rbac.cache.max_user_entries", c.MaxUserEntries},
		{"auth.rbac.cache.max_permission_entries", c.MaxPermissionEntries},
	} {
		if f.value <= 0 {
			return fmt.Errorf("invalid %s %d: must be positive when RBAC is enabled", f.name, f.value)
		}
	}
	return nil
}

// TTLs returns the parsed cache lifetimes. Call it after Validate.
func (c *RBACCacheConfig) TTLs() (role, userRole, permission time.Duration) {
	role, _ = time.ParseDuration(c.RoleTTL)
	userRole, _ = time.ParseDuration(c.UserRoleTTL)
	permission, _ = time.ParseDuration(c.PermissionTTL)
	return role, userRole, permission
}

func (l *LogConfig) validate() error {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if err := oneOf("log.level", l.Level, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	return oneOf("log.format", l.Format, "text", "json")
}

func (m *MetricsConfig) validate() error {
	if !m.Enabled {
		return nil
	}
	p := strings.TrimSpace(m.Path)
	if p == "" {
		p = "/metrics"
	}
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("invalid metrics.path %q: must start with '/'", m.Path)
	}
	m.Path = p
	return nil
}

// validate normalizes the dashboard section. Unset values take defaults:
// a 10 row page, a 500ms search debounce, a 10s API timeout, English, and
// in-process refresh events.
func (d *DashboardConfig) validate() error {
	d.APIBaseURL = strings.TrimRight(strings.TrimSpace(d.APIBaseURL), "/")
	if d.APIBaseURL != "" {
		u, err := url.Parse(d.APIBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid dashboard.api_base_url %q: must be an absolute http(s) URL", d.APIBaseURL)
		}
	}

	if d.PageSize == 0 {
		d.PageSize = 10
	}
	if d.PageSize < 0 || d.PageSize > 100 {
		return fmt.Errorf("invalid dashboard.page_size %d: must be between 1 and 100", d.PageSize)
	}

	if strings.TrimSpace(d.APITimeout) == "" {
		d.APITimeout = "10s"
	}
	if err := checkDuration("dashboard.api_timeout", &d.APITimeout, true); err != nil {
		return err
	}
	if strings.TrimSpace(d.SearchDebounce) == "" {
		d.SearchDebounce = "500ms"
	}
	if err := checkDuration("dashboard.search_debounce", &d.SearchDebounce, true); err != nil {
		return err
	}

	locale := strings.ToLower(strings.TrimSpace(d.DefaultLocale))
	if locale == "" {
		locale = "en"
	}
	if err := oneOf("dashboard.default_locale", locale, "en", "ar"); err != nil {
		return err
	}
	d.DefaultLocale = locale

	return d.Events.validate()
}

func (e *EventsConfig) validate() error {
	driver := strings.ToLower(strings.TrimSpace(e.Driver))
	if driver == "" {
		driver = "local"
	}
	if err := oneOf("dashboard.events.driver", driver, "local", "redis"); err != nil {
		return err
	}
	e.Driver = driver
	if driver == "local" {
		return nil
	}

	r := &e.Redis
	if r.Addr = strings.TrimSpace(r.Addr); r.Addr == "" {
		return errors.New("dashboard.events.redis.addr is required when events driver is redis")
	}
	if r.DB < 0 {
		return fmt.Errorf("invalid dashboard.events.redis.db %d: must not be negative", r.DB)
	}
	if r.Channel = strings.TrimSpace(r.Channel); r.Channel == "" {
		r.Channel = "gymadmin:events"
	}
	return nil
}

// SearchDebounceDuration returns the parsed search debounce delay.
// Validate must have been called.
func (d *DashboardConfig) SearchDebounceDuration() time.Duration {
	v, _ := time.ParseDuration(d.SearchDebounce)
	return v
}

// APITimeoutDuration returns the parsed API client timeout.
// Validate must have been called.
func (d *DashboardConfig) APITimeoutDuration() time.Duration {
	v, _ := time.ParseDuration(d.APITimeout)
	return v
}

// checkDuration trims *v and requires a positive Go duration. An empty
// value passes unless required.
func checkDuration(name string, v *string, required bool) error {
	*v = strings.TrimSpace(*v)
	if *v == "" && !required {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *v, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, *v)
	}
	return nil
}

func oneOf(name, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	quoted := make([]string, len(allowed))
	for i, a := range allowed {
		quoted[i] = strconv.Quote(a)
	}
	return fmt.Errorf("invalid %s %q: must be one of %s", name, value, strings.Join(quoted, ", "))
}

// CountSecretClasses counts the character classes (lowercase, uppercase,
// digit, symbol) present in secret.
func CountSecretClasses(secret string) int {
	var seen [4]bool
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			seen[0] = true
		case unicode.IsUpper(r):
			seen[1] = true
		case unicode.IsDigit(r):
			seen[2] = true
		default:
			seen[3] = true
		}
	}
	n := 0
	for _, ok := range seen {
		if ok {
			n++
		}
	}
	return n
}
