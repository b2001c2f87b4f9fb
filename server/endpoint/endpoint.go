// Package endpoint provides the health and version routes every gateway exposes.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/modelkit/observability"
	"github.com/kbukum/modelkit/version"
)

var started = time.Now()

// HealthChecker reports the health of each backing component.
type HealthChecker func(ctx context.Context) []observability.Health

// Health answers 503 when any component is down. Degraded still answers 200.
func Health(service string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.NewServiceHealth(service, version.GetShortVersion())
		if checker != nil {
			for _, h := range checker(c.Request.Context()) {
				sh.AddComponent(h)
			}
		}
		code := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, sh)
	}
}

// Info reports the service name, build and uptime.
func Info(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   service,
			"build":     version.GetVersionInfo(),
			"uptime":    time.Since(started).Round(time.Second).String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func Version() gin.HandlerFunc {
	return func(c *gin.Context) { c.JSON(http.StatusOK, version.GetVersionInfo()) }
}
