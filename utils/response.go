package utils

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/saeed-rahimi/ss/apperrors"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

// Response is the envelope every endpoint answers with
type Response struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Code        string `json:"code,omitempty"`
	Data        any    `json:"data,omitempty"`
	Count       *int   `json:"count,omitempty"`
	Total       *int64 `json:"total,omitempty"`
	Pages       *int   `json:"pages,omitempty"`
	CurrentPage *int   `json:"currentPage,omitempty"`
}

// PageInfo describes one page of a paginated listing
type PageInfo struct {
	Total       int64
	Pages       int
	CurrentPage int
}

// ErrorResponse builds the failure envelope for a classified error
func ErrorResponse(appErr *apperrors.Error) Response {
	return Response{Success: false, Message: appErr.Message, Code: appErr.Code}
}

// RespondSuccess writes {success:true, data}
func RespondSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

// RespondMessage writes {success:true, message, data}
func RespondMessage(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// RespondList writes a list with its count and, when page is set, pagination fields
func RespondList[T any](c *gin.Context, items []T, page *PageInfo) {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	resp := Response{Success: true, Data: items, Count: &count}
	if page != nil {
		resp.Total = &page.Total
		resp.Pages = &page.Pages
		resp.CurrentPage = &page.CurrentPage
	}
	c.JSON(http.StatusOK, resp)
}

// RespondError classifies err, logs unexpected failures, and writes the
// failure envelope. Internal details never reach the client.
func RespondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	status := apperrors.HTTPStatus(appErr.Kind)

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			slog.String("request_id", c.GetString(RequestIDKey)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
	}

	c.AbortWithStatusJSON(status, ErrorResponse(appErr))
}

// BindError reports a request binding failure as a validation error
func BindError(c *gin.Context, err error) {
	RespondError(c, apperrors.Validation(ValidationMessage(err)))
}
