package config

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/simp-lee/logger"
)

func boolPtr(b bool) *bool { return &b }

func TestSetupLogger_NilConfig(t *testing.T) {
	if _, err := SetupLogger(nil); err == nil {
		t.Fatal("SetupLogger(nil) error = nil")
	}
	if opts := BuildLoggerOpts(nil); opts != nil {
		t.Fatalf("BuildLoggerOpts(nil) = %v, want nil", opts)
	}
}

func TestSetupLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := SetupLogger(&LogConfig{Level: tt.level, Format: "text", Color: boolPtr(false)})
			if err != nil {
				t.Fatalf("SetupLogger error: %v", err)
			}
			defer log.Close()

			if !log.Enabled(context.Background(), tt.want) {
				t.Fatalf("level %v disabled, want enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && log.Enabled(context.Background(), tt.want-1) {
				t.Fatalf("level %v enabled below the configured %v", tt.want-1, tt.want)
			}
			if slog.Default().Handler() != log.Handler() {
				t.Fatal("SetupLogger did not install itself as slog.Default()")
			}
		})
	}
}

func TestSetupLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gymadmin.log")
	log, err := SetupLogger(&LogConfig{
		Level:           "info",
		Format:          "json",
		Color:           boolPtr(false),
		FilePath:        path,
		MaxSizeMB:       5,
		RetentionDays:   3,
		MaxBackups:      2,
		CompressRotated: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	log.Info("member created", slog.Int("member_id", 7))
	if err := log.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "member created") {
		t.Fatalf("log file misses the record: %q", data)
	}
}

func TestBuildLoggerOpts_OptionCount(t *testing.T) {
	// Level, context middleware, console format and console color.
	const base = 4

	tests := []struct {
		name string
		cfg  *LogConfig
		want int
	}{
		{"console only", &LogConfig{Level: "info", Format: "text"}, base},
		{"unknown format still console only", &LogConfig{Level: "info", Format: "logfmt"}, base},
		{"file without rotation", &LogConfig{Level: "info", Format: "json", FilePath: "app.log"}, base + 2},
		{"file with every rotation setting", &LogConfig{
			Level: "info", Format: "json", FilePath: "app.log",
			MaxSizeMB: 10, RetentionDays: 7, MaxBackups: 3, CompressRotated: boolPtr(false),
		}, base + 6},
		{"zero rotation values skipped", &LogConfig{Level: "info", Format: "json", FilePath: "app.log", MaxBackups: 1}, base + 3},
		{"rotation ignored without file", &LogConfig{Level: "info", Format: "json", MaxSizeMB: 10}, base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := BuildLoggerOpts(tt.cfg)
			if len(opts) != tt.want {
				t.Fatalf("option count = %d, want %d", len(opts), tt.want)
			}
			log, err := logger.New(opts...)
			if err != nil {
				t.Fatalf("logger.New: %v", err)
			}
			_ = log.Close()
		})
	}
}

func TestNewGormLogger(t *testing.T) {
	t.Run("debug logs statements", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		NewGormLogger(log).Info(context.Background(), "SELECT %s", "members")
		out := buf.String()
		if !strings.Contains(out, "SELECT members") || !strings.Contains(out, "component=gorm") {
			t.Fatalf("output = %q", out)
		}
		if !strings.Contains(out, "level=DEBUG") {
			t.Fatalf("statements should log at debug: %q", out)
		}
	})

	t.Run("info hides statements", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

		NewGormLogger(log).Info(context.Background(), "SELECT 1")
		if buf.Len() != 0 {
			t.Fatalf("output = %q, want none", buf.String())
		}
	})

	t.Run("info keeps errors", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

		NewGormLogger(log).Error(context.Background(), "query failed: %v", errors.New("disk full"))
		out := buf.String()
		if !strings.Contains(out, "disk full") || !strings.Contains(out, "level=WARN") {
			t.Fatalf("output = %q, want the error at warn", out)
		}
	})
}
