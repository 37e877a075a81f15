package httpclient

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindTimeout means no response headers arrived within the client timeout.
	KindTimeout Kind = "timeout"
	// KindError covers non-2xx responses and transport failures.
	KindError Kind = "error"
	// KindMalformed means a 2xx body could not be decoded into the expected shape.
	KindMalformed Kind = "malformed_response"
)

// TimeoutMessage is the fixed message carried by every timeout error.
const TimeoutMessage = "Request timed out."

const errorSnippetLen = 512

// Error is the single failure value produced by the pipeline. Every field is
// always present; HTTPStatus is 0 and RequestBody is "" when not applicable.
type Error struct {
	Kind        Kind
	Message     string
	Method      string
	Resource    string
	HTTPStatus  int
	RequestBody string

	cause error
}

func (e *Error) Error() string {
	if e.Kind == KindTimeout {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Resource, e.Message)
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Method)
	b.WriteString(" ")
	b.WriteString(e.Resource)
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " (status %d)", e.HTTPStatus)
	}
	if msg := snippet(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

// Unwrap exposes the underlying transport or decode error, if any.
func (e *Error) Unwrap() error { return e.cause }

// AsError extracts the pipeline error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsTimeout reports whether err is a timeout-kind pipeline error.
func IsTimeout(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindTimeout
}

// IsMalformed reports whether err is a malformed-response pipeline error.
func IsMalformed(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindMalformed
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.HTTPStatus
	}
	return 0
}

func newTimeoutError(method, resource string, cause error) *Error {
	return &Error{
		Kind:     KindTimeout,
		Message:  TimeoutMessage,
		Method:   method,
		Resource: resource,
		cause:    cause,
	}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > errorSnippetLen {
		return s[:errorSnippetLen] + "..."
	}
	return s
}
