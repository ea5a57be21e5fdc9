package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantalink/qnet-gateway/internal/metrics"
)

// Metrics records request latency and gateway decisions.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())

		// Decision metrics only make sense on the keyed API surface.
		if !strings.HasPrefix(c.Request.URL.Path, "/v1") {
			return
		}
		if decision, ok := decisionForStatus(status); ok {
			var tierName string
			if t := TierFromContext(c); t != nil {
				tierName = t.Name
			}
			m.Decisions.WithLabelValues(tierName, decision).Inc()
		}
	}
}
