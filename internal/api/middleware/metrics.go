package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"stateflow.dev/stateflow/internal/pkg/metrics"
)

// Metrics records request count and latency per matched route. Register it
// ahead of ErrorHandler so the final status is observed.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.HTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
