package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/modelkit/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err as an ErrorResponse. Errors without an
// AppError in their chain answer 500 without exposing their text.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err)
	c.JSON(appErr.Status(), appErr.ToResponse())
}

// RespondOK writes data in a DataResponse with status 200.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// BindJSON decodes the request body into v. A body cut off by the body size
// limit is PAYLOAD_TOO_LARGE whether or not it declared a Content-Length;
// other decode failures are INVALID_INPUT.
func BindJSON(c *gin.Context, v any) error {
	err := c.ShouldBindJSON(v)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.PayloadTooLarge(tooLarge.Limit)
	}
	return apperrors.InvalidInput("body", err.Error())
}
