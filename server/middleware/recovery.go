package middleware

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/logger"
)

// Recovery turns a handler panic into a logged INTERNAL_ERROR response.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		log.WithContext(c.Request.Context()).Error("panic recovered", logger.Fields(
			logger.FieldError, fmt.Sprint(rec),
			"stack", string(debug.Stack()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		))
		appErr := apperrors.Internal(fmt.Errorf("panic: %v", rec))
		c.AbortWithStatusJSON(appErr.Status(), appErr.ToResponse())
	})
}
