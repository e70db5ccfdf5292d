package genie

import "fmt"

// ErrorCode classifies client failures.
type ErrorCode string

const (
	ErrorTransport    ErrorCode = "TRANSPORT_ERROR"
	ErrorUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorTimeout      ErrorCode = "TIMEOUT"
	ErrorMalformed    ErrorCode = "MALFORMED_RESPONSE"
	ErrorBackend      ErrorCode = "BACKEND_FAILURE"
)

// Error is a classified client failure. Unauthorized is distinguished from
// plain transport failures in the code and metrics but handled identically by
// callers.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("genie: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("genie: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
