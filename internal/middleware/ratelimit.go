package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/simp-lee/gymadmin/internal/i18n"
	"github.com/simp-lee/gymadmin/internal/pkg"
)

const rateLimitIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than rateLimitIdleTTL are dropped on the next sweep.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	rps       rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > rateLimitIdleTTL {
		for k, cl := range l.clients {
			if now.Sub(cl.lastSeen) > rateLimitIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// RateLimit returns a gin middleware that limits each client IP to rps
// requests per second with the given burst. Rejected requests get 429 with
// a Retry-After header; htmx requests get an error toast instead of a body.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	limiter := newRateLimiter(rps, burst)
	return func(c *gin.Context) {
		if limiter.allow(c.ClientIP()) {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		msg := i18n.Default().Localized("errors.too_many_requests")
		if msg.English == "" {
			msg.English = "too many requests"
		}
		if pkg.IsHTMX(c) {
			pkg.Reswap(c, "none")
			pkg.ShowToast(c, msg.In(pkg.Locale(c)), "error")
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, pkg.Response{
			Code:    http.StatusTooManyRequests,
			Message: msg,
		})
	}
}
