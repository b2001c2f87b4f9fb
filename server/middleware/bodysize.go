package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/util"
)

const defaultMaxBodySize = 1 << 20

// BodySizeLimit caps request bodies at maxSize (e.g. "1MiB"). Reads past
// the limit fail, which JSON binding reports as a 400.
func BodySizeLimit(maxSize string) gin.HandlerFunc {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(c *gin.Context) {
		if c.Request.ContentLength > size {
			appErr := apperrors.PayloadTooLarge(size)
			c.AbortWithStatusJSON(appErr.Status(), appErr.ToResponse())
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, size)
		c.Next()
	}
}
