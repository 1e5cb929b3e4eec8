// Package apperr is the error taxonomy shared by services and the HTTP layer.
//
// Every error that should reach a client is an *Error carrying the HTTP status,
// a short message and optional details (for example the upstream response
// body). Anything else is treated as an internal fault by the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
)

// Kind sentinels. An *Error unwraps to exactly one of them, so callers can
// write errors.Is(err, apperr.ErrValidation).
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrNotFound       = errors.New("not found")
	ErrLocked         = errors.New("locked")
	ErrUpstream       = errors.New("upstream error")
	ErrInternal       = errors.New("internal error")
)

// Error is a client-facing failure.
type Error struct {
	kind    error
	Status  int
	Message string
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.kind }

// Validation builds a 400 error.
func Validation(msg string) *Error {
	return &Error{kind: ErrValidation, Status: http.StatusBadRequest, Message: msg}
}

// Authentication builds a 401 error.
func Authentication(msg string) *Error {
	return &Error{kind: ErrAuthentication, Status: http.StatusUnauthorized, Message: msg}
}

// NotFound builds a 404 error.
func NotFound(msg string) *Error {
	return &Error{kind: ErrNotFound, Status: http.StatusNotFound, Message: msg}
}

// Locked builds a 429 error used while a username is locked out.
func Locked(msg string) *Error {
	return &Error{kind: ErrLocked, Status: http.StatusTooManyRequests, Message: msg}
}

// Upstream builds an error for a failed third-party call. A status outside
// the 4xx/5xx range is replaced by 502.
func Upstream(status int, msg, details string) *Error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &Error{kind: ErrUpstream, Status: status, Message: msg, Details: details}
}

// Internal builds a 500 error. The message is shown to clients, so it must
// not contain internals.
func Internal(msg string) *Error {
	return &Error{kind: ErrInternal, Status: http.StatusInternalServerError, Message: msg}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
