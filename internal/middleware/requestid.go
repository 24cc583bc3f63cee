package middleware

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
	maxRequestIDLen     = 64
)

// RequestIDConfig controls where request IDs come from.
type RequestIDConfig struct {
	// TrustUpstream reuses a well-formed incoming X-Request-ID, for
	// deployments behind a proxy that assigns one.
	TrustUpstream bool

	// Generate makes a new ID. Defaults to a dashless random UUID.
	Generate func() string
}

// RequestIDWithConfig tags every request with an ID. The ID is stored in the
// gin context, echoed in X-Request-ID and attached to the request context so
// slog records written through simp-lee/logger carry request_id. Error pages
// print it so members can quote it to staff.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	generate := cfg.Generate
	if generate == nil {
		generate = newRequestID
	}

	return func(c *gin.Context) {
		var id string
		if cfg.TrustUpstream {
			if upstream := c.GetHeader(requestIDHeader); wellFormedRequestID(upstream) {
				id = upstream
			}
		}
		if id == "" {
			id = generate()
		}

		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(
			logger.WithContextAttrs(c.Request.Context(), slog.String("request_id", id)),
		)
		c.Next()
	}
}

// GetRequestID returns the ID set by RequestIDWithConfig, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// wellFormedRequestID admits 1 to 64 ASCII letters, digits and dashes, which
// keeps upstream values safe to log and to print in pages.
func wellFormedRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}

// newRequestID returns 32 hex characters. A failing random source degrades
// to a time-based UUID and then to the clock alone.
func newRequestID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		if id, err = uuid.NewUUID(); err != nil {
			return strconv.FormatInt(time.Now().UnixNano(), 16)
		}
	}
	return strings.ReplaceAll(id.String(), "-", "")
}
