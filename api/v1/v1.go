package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body rendered for every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// Error carries the HTTP status an API failure should map to. Services
// return these; handlers render them verbatim.
type Error struct {
	Code    int
	Message string
}

func newError(code int, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func (e *Error) Error() string {
	return e.Message
}

// HandleError renders err as an ErrorResponse. Errors that are not *Error
// fall back to the given status code.
func HandleError(ctx *gin.Context, httpCode int, err error) {
	if err == nil {
		err = ErrInternalServerError
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		ctx.JSON(apiErr.Code, ErrorResponse{Message: apiErr.Message})
		return
	}
	ctx.JSON(httpCode, ErrorResponse{Message: err.Error()})
}

// HandleSuccess writes data with the given status. A nil payload renders
// an empty body.
func HandleSuccess(ctx *gin.Context, httpCode int, data interface{}) {
	if data == nil {
		ctx.Status(httpCode)
		return
	}
	ctx.JSON(httpCode, data)
}

func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Code: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

func Unprocessablef(format string, args ...interface{}) *Error {
	return &Error{Code: http.StatusUnprocessableEntity, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Code: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func BadRequestf(format string, args ...interface{}) *Error {
	return &Error{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}
