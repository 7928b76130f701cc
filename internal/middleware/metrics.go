package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"destravate-api/internal/metrics"
)

// Metrics records Prometheus request count and latency for an endpoint,
// labelled with the final response status
func Metrics(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		statusStr := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(endpoint, statusStr).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(endpoint, statusStr).Observe(duration)
	}
}
