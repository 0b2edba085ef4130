package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the taxonomy every domain operation returns: the HTTP status
// carries the category (FORBIDDEN / NOT_FOUND / BAD_REQUEST / CONFLICT)
// and the message names the specific offending resource so the frontend
// can show it to the user.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *Error) Error() string { return e.Message }

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// StatusOf maps any error to a response code. Unrecognized errors are
// internal failures and must not leak their message shape decisions to
// the client beyond the generic 500.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}
