package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medicare-server/internal/apperror"
	"medicare-server/internal/utils"
)

// ErrorHandler renders the last error recorded on the context as the failure
// envelope. Error detail and stack are only included in development.
func ErrorHandler(dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		renderError(c, last.Err, dev, "")
	}
}

// Recovery turns a panic into a 500 failure envelope.
func Recovery(logger zerolog.Logger, dev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)

				logger.Error().
					Str("request_id", RequestIDFrom(c)).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")

				if !c.Writer.Written() {
					renderError(c, fmt.Errorf("panic: %v", r), dev, string(stack[:n]))
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

func renderError(c *gin.Context, err error, dev bool, stack string) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal(err)
	}

	resp := utils.ErrorResponse{
		Success:     false,
		StatusCode:  appErr.StatusCode,
		Message:     appErr.Message,
		ErrorSource: appErr.Sources,
	}
	if resp.ErrorSource == nil {
		resp.ErrorSource = []apperror.Source{{Path: "", Message: appErr.Message}}
	}
	if dev {
		resp.Error = err.Error()
		resp.Stack = stack
	}
	if appErr.Retryable() {
		c.Header("Retry-After", "5")
	}

	status := appErr.StatusCode
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, resp)
}
