package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/pkg"
)

// Logger writes one access log record per request. Requests whose path starts
// with one of skipPrefixes are not logged unless they fail with a 5xx.
//
// 4xx responses log at Warn and 5xx at Error. Records go through the
// context-aware slog methods so the request id handler can attach request_id.
func Logger(logger *slog.Logger, skipPrefixes ...string) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.Request.URL.Path
		if status < 500 && hasAnyPrefix(path, skipPrefixes) {
			return
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		attrs := make([]slog.Attr, 0, 12)
		attrs = append(attrs,
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.Int("bytes", max(c.Writer.Size(), 0)),
		)
		if route := c.FullPath(); route != "" && route != path {
			attrs = append(attrs, slog.String("route", route))
		}
		if c.GetHeader("HX-Request") == "true" {
			attrs = append(attrs, slog.Bool("htmx", true))
		}
		if locale := c.GetString(pkg.LocaleKey); locale != "" {
			attrs = append(attrs, slog.String("locale", locale))
		}
		if p, ok := GetPrincipal(c); ok {
			attrs = append(attrs, slog.Uint64("user_id", uint64(p.UserID)))
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			attrs = append(attrs, slog.String("errors", errs.String()))
		}

		logger.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
