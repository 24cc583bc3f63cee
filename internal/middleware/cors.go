package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig describes which browser origins may call the API and the
// dashboard from another site.
type CORSConfig struct {
	// Origins lists allowed origins; "*" admits any. Empty denies all.
	Origins     []string
	Methods     []string
	Headers     []string
	Expose      []string
	Credentials bool
	MaxAge      time.Duration
}

// DefaultCORSConfig admits any origin. The header lists cover the bearer
// token, the locale and the htmx request and response headers.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Origins: []string{"*"},
		Methods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		Headers: []string{
			"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization",
			"X-Requested-With", csrfHeaderName,
			"HX-Request", "HX-Current-URL", "HX-Target", "HX-Trigger",
		},
		Expose: []string{requestIDHeader, "HX-Trigger", "HX-Redirect", "HX-Reswap"},
		MaxAge: 24 * time.Hour,
	}
}

type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]struct{}
	credentials bool
	headers     map[string]string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:     make(map[string]struct{}, len(cfg.Origins)),
		credentials: cfg.Credentials,
		headers: map[string]string{
			"Access-Control-Allow-Methods": strings.Join(cfg.Methods, ", "),
			"Access-Control-Allow-Headers": strings.Join(cfg.Headers, ", "),
		},
	}
	for _, o := range cfg.Origins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[o] = struct{}{}
	}
	if len(cfg.Expose) > 0 {
		p.headers["Access-Control-Expose-Headers"] = strings.Join(cfg.Expose, ", ")
	}
	if cfg.MaxAge > 0 {
		p.headers["Access-Control-Max-Age"] = strconv.Itoa(int(cfg.MaxAge / time.Second))
	}
	if cfg.Credentials {
		p.headers["Access-Control-Allow-Credentials"] = "true"
	}
	return p
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin.
// A credentialed wildcard must echo the origin rather than send "*".
func (p *corsPolicy) allowedOrigin(origin string) (string, bool) {
	if _, ok := p.origins[origin]; ok {
		return origin, true
	}
	if !p.anyOrigin {
		return "", false
	}
	if p.credentials {
		return origin, true
	}
	return "*", true
}

// CORS answers cross-origin requests according to cfg. Same-origin requests
// and requests from unlisted origins pass through without CORS headers; a
// preflight from an allowed origin ends with 204.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		c.Writer.Header().Add("Vary", "Origin")

		allow, ok := policy.allowedOrigin(origin)
		if !ok {
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", allow)
		for k, v := range policy.headers {
			h.Set(k, v)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
