package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/modelkit/auth/authctx"
	apperrors "github.com/kbukum/modelkit/errors"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(token string) (any, error)

// Auth rejects requests without a valid bearer token. Paths with a prefix in
// skipPaths pass through. Validated claims are stored in the request context
// and can be read back with authctx.Get.
func Auth(validate TokenValidator, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range skipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := validate(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Request = c.Request.WithContext(authctx.Set(c.Request.Context(), claims))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, reason string) {
	appErr := apperrors.Unauthorized(reason)
	c.AbortWithStatusJSON(appErr.Status(), appErr.ToResponse())
}
