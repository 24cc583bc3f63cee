package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gymadmin/internal/metrics"
)

// Metrics returns a gin middleware that records request count, latency and
// in-flight requests. Requests are labeled by route template (c.FullPath)
// so path parameters do not explode label cardinality; unmatched routes are
// labeled "unmatched".
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
