// Package errors carries a machine-readable [Code] alongside an error so the
// CLI and the HTTP API can tell a bad request from a broken renderer.
//
// Callers of the card pipeline only ever see two codes. INVALID_INPUT means
// the theme, accent or output size was out of range and nothing was
// fetched; RENDER_FAILURE means markup or rasterization failed. Image
// problems never escape: the gatekeeper tags them IMAGE_REJECTED for its
// logs and hooks, then drops the image. The network codes come from the
// HTTP client and surface only through the probe command.
//
//	if err := req.Validate(); errors.Is(err, errors.ErrCodeInvalidInput) {
//	    return http.StatusBadRequest
//	}
//
// Import it as apperr next to the standard library package.
package errors

import (
	"errors"
	"fmt"
)

// Code names a failure class. Codes are stable and appear in API error
// bodies.
type Code string

const (
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeImageRejected Code = "IMAGE_REJECTED"
	ErrCodeRenderFailure Code = "RENDER_FAILURE"

	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeTimeout  Code = "TIMEOUT"
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeCanceled Code = "CANCELED"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error pairs a Code with a message safe to show a user. Cause, when set,
// stays reachable through errors.Is and errors.As.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause == nil {
		return msg
	}
	return msg + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// GetCode returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err's outermost code is code. An inner code wrapped by
// a different outer one does not match.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// UserMessage is the text for an API error body or CLI output: the
// message of a coded error without its code and cause, otherwise the
// whole error string.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
