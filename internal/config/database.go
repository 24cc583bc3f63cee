package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// SetupDatabase opens the gym database. SQLite creates the parent directory
// of its file; postgres connects through a DSN built from the config. GORM
// logs through logger, and the pool is sized from cfg.Pool.
func SetupDatabase(cfg *DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("database config is nil")
	}
	if logger == nil {
		return nil, errors.New("logger is nil")
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pool, err := resolvePool(cfg.Pool)
	if err == nil {
		err = pool.apply(db)
	}
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	logger.Info("database connected",
		slog.String("driver", cfg.Driver),
		slog.Int("max_idle_conns", pool.maxIdle),
		slog.Int("max_open_conns", pool.maxOpen),
		slog.Duration("conn_max_lifetime", pool.lifetime),
	)

	return db, nil
}

func dialectorFor(cfg *DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory %q: %w", dir, err)
			}
		}
		return sqlite.Open(cfg.SQLite.Path), nil
	case "postgres":
		return postgres.Open(buildPostgresDSN(&cfg.Postgres)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// MigrateDatabase creates or updates the tables for models.
func MigrateDatabase(ctx context.Context, db *gorm.DB, models ...any) error {
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// PingDatabase checks that the database answers within ctx.
func PingDatabase(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// poolSettings is a validated PoolConfig. Zero values take the defaults of
// 10 idle and 100 open connections recycled every hour.
type poolSettings struct {
	maxIdle  int
	maxOpen  int
	lifetime time.Duration
}

func resolvePool(cfg PoolConfig) (poolSettings, error) {
	p := poolSettings{maxIdle: 10, maxOpen: 100, lifetime: time.Hour}
	if cfg.MaxIdleConns > 0 {
		p.maxIdle = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		p.maxOpen = cfg.MaxOpenConns
	}
	if v := strings.TrimSpace(cfg.ConnMaxLifetime); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return p, fmt.Errorf("invalid pool.conn_max_lifetime %q: %w", cfg.ConnMaxLifetime, err)
		}
		if d <= 0 {
			return p, fmt.Errorf("invalid pool.conn_max_lifetime %q: must be greater than 0", cfg.ConnMaxLifetime)
		}
		p.lifetime = d
	}
	return p, nil
}

func (p poolSettings) apply(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(p.maxIdle)
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetConnMaxLifetime(p.lifetime)
	return nil
}

func buildPostgresDSN(cfg *PostgresConfig) string {
	if cfg == nil {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   cfg.DBName,
	}
	if cfg.User != "" || cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}
