package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error carrying an HTTP status code and a message that is safe
// to show to API clients.
type Error interface {
	error

	Code() int
	Message() string
	Cause() error
}

// DefaultCode is used when no code is given: 500, Internal Server Error.
var DefaultCode = http.StatusInternalServerError

type codedError struct {
	code  int
	msg   string
	cause error
}

func (err *codedError) Error() string {
	if err.cause == nil {
		return err.msg
	}
	return fmt.Sprintf("%s: %v", err.msg, err.cause)
}

func (err *codedError) Code() int       { return err.code }
func (err *codedError) Message() string { return err.msg }
func (err *codedError) Cause() error    { return err.cause }
func (err *codedError) Unwrap() error   { return err.cause }

// Enricher mutates an error built by New.
type Enricher func(*codedError)

// WithCode sets the status code.
func WithCode(code int) Enricher {
	return func(err *codedError) { err.code = code }
}

// WithCause attaches the underlying error. The cause is logged, never sent to
// clients.
func WithCause(cause error) Enricher {
	return func(err *codedError) { err.cause = cause }
}

func BadRequest() Enricher   { return WithCode(http.StatusBadRequest) }
func Unauthorized() Enricher { return WithCode(http.StatusUnauthorized) }
func Forbidden() Enricher    { return WithCode(http.StatusForbidden) }
func NotFound() Enricher     { return WithCode(http.StatusNotFound) }

// New builds a coded error.
func New(msg string, fs ...Enricher) error {
	err := &codedError{msg: msg, code: DefaultCode}
	for _, f := range fs {
		f(err)
	}
	return err
}

// Internal wraps an unexpected store failure as a generic server error.
func Internal(msg string, cause error) error {
	return New(msg, WithCause(cause))
}

// CodeOf returns the status code carried by err, or DefaultCode.
func CodeOf(err error) int {
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return DefaultCode
}

// MessageOf returns the client-facing message of err. Uncoded errors get a
// generic message so internal details do not leak.
func MessageOf(err error) string {
	var e Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return "Internal server error"
}
