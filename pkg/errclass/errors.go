// Package errclass defines the stable error classes surfaced by vfsroot operations.
package errclass

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a stable, machine-readable error class.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithMessage returns a new Error with the same Code but a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Cause: e.Cause}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...), Cause: e.Cause}
}

// WithCause returns a copy of e carrying cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Cause: cause}
}

var (
	ErrOutOfRoot          = &Error{Code: "E_OUT_OF_ROOT"}
	ErrForbidden          = &Error{Code: "E_FORBIDDEN"}
	ErrNotAFile           = &Error{Code: "E_NOT_A_FILE"}
	ErrNotUTF8            = &Error{Code: "E_NOT_UTF8"}
	ErrUnreadableDocument = &Error{Code: "E_UNREADABLE_DOCUMENT"}
	ErrBadFormat          = &Error{Code: "E_BAD_FORMAT"}
	ErrEncoding           = &Error{Code: "E_ENCODING"}
)

// HTTPStatus suggests a status code for err. Anything outside the
// known classes is an I/O failure and maps to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrOutOfRoot):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotAFile),
		errors.Is(err, ErrNotUTF8),
		errors.Is(err, ErrUnreadableDocument),
		errors.Is(err, ErrBadFormat),
		errors.Is(err, ErrEncoding):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
