package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/modelkit/observability"
)

// Metrics records request counts, durations and in-flight requests.
// A nil m yields a pass-through handler.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.RecordRequestStart(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequestEnd(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
