package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed taxonomy of pipeline failures. The kind decides
// whether a failed transcription attempt is worth retrying.
type ErrorKind string

const (
	ErrDownload          ErrorKind = "download"
	ErrUnsupportedFormat ErrorKind = "unsupported_format"
	ErrValidation        ErrorKind = "validation"
	ErrAuthentication    ErrorKind = "authentication"
	ErrPayloadTooLarge   ErrorKind = "payload_too_large"
	ErrMalformedRequest  ErrorKind = "malformed_request"
	ErrTimeout           ErrorKind = "timeout"
	ErrNetwork           ErrorKind = "network"
	ErrServer            ErrorKind = "server"
	ErrUnknown           ErrorKind = "unknown"
)

// Retryable reports whether another attempt against the service could
// plausibly succeed. Validation, format, and credential failures are
// terminal; connectivity, timeout, and server-side failures are not.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrTimeout, ErrNetwork, ErrServer, ErrUnknown:
		return true
	}
	return false
}

// Error carries a taxonomy kind plus a human-readable message through the
// pipeline. It is never shown verbatim to end users; the formatter maps it
// to a guidance template.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewError builds a taxonomy error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts the taxonomy error from err, if there is one.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind of err, or ErrUnknown when err carries no
// explicit kind.
func KindOf(err error) ErrorKind {
	if te, ok := AsError(err); ok {
		return te.Kind
	}
	return ErrUnknown
}
