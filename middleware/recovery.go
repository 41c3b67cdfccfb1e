package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/apperrors"
	"github.com/saeed-rahimi/ss/utils"
)

// Recovery turns a panic into the standard 500 envelope
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.ErrorContext(c.Request.Context(), "panic recovered",
			slog.String("request_id", c.GetString(utils.RequestIDKey)),
			slog.String("path", c.Request.URL.Path),
			slog.Any("panic", recovered),
			slog.String("stack", string(debug.Stack())),
		)

		if c.Writer.Written() {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		utils.RespondError(c, apperrors.Internal(fmt.Errorf("panic: %v", recovered)))
	})
}
