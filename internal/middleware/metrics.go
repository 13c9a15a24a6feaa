package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osanyin/herbal/pkg/metrics"
)

const metricsPath = "/metrics"

// Metrics records request latency for each HTTP request, labelled by the
// registered route pattern so path parameters do not explode cardinality.
// Scrapes of the metrics endpoint itself are not observed.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if path == metricsPath {
			return
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.APILatency.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}
