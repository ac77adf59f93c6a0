package handler

// errors.go has the error type for requests that fail before (or instead of) GraphQL execution

import (
	"fmt"
	"net/http"
	"strings"
)

// httpError is returned when the HTTP request itself is wrong, eg bad method or invalid JSON.  It is written
// as a response with the status code and a body containing a single GraphQL error with the message.
type httpError struct {
	status  int
	allow   []string // methods for the Allow header of a 405 response
	message string
}

func newHTTPError(status int, message string, allow ...string) *httpError {
	return &httpError{status: status, message: message, allow: allow}
}

func badRequest(format string, args ...interface{}) *httpError {
	return newHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func (e *httpError) Error() string {
	return e.message
}

// header writes any headers specific to the error
func (e *httpError) header(w http.ResponseWriter) {
	if len(e.allow) > 0 {
		w.Header().Set("Allow", strings.Join(e.allow, ", "))
	}
}
