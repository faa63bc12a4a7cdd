package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/maysqunaibi/strollers-backend/internal/shared/apperr"
)

// Fail records err on the context and stops the chain; ErrorHandler turns it
// into the response.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler is the terminal net for errors no handler answered itself.
// Every response it writes is the standard {code,msg} envelope plus the
// request id, so operators can find the matching log line.
func ErrorHandler(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperr.HTTPStatus(err)
		rid := GetRequestID(c)

		l.LogAttrs(c.Request.Context(), slog.LevelError, "request_failed",
			slog.String("request_id", rid),
			slog.Int("status", status),
			slog.Any("err", err),
		)

		payload := gin.H{
			"code":       apperr.PublicCode(err),
			"msg":        apperr.PublicMessage(err),
			"request_id": rid,
		}
		if ae, ok := apperr.As(err); ok && len(ae.Fields) > 0 {
			payload["fields"] = ae.Fields
		}
		c.AbortWithStatusJSON(status, payload)
	}
}
