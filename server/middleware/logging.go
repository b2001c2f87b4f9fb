package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/modelkit/logger"
)

// quietPaths are polled constantly and only logged on failure.
var quietPaths = map[string]bool{
	"/health":  true,
	"/version": true,
}

// RequestLogger logs each request at a level chosen by its status code.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if quietPaths[c.Request.URL.Path] && status < 500 {
			return
		}

		fields := logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			logger.FieldStatus, status,
			logger.FieldDuration, time.Since(start).Milliseconds(),
			"client", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.Last().Error()
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Error("request completed", fields)
		case status >= 400:
			l.Warn("request completed", fields)
		default:
			l.Debug("request completed", fields)
		}
	}
}
