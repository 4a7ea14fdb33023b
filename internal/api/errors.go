package api

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the client layer can surface. Repository
// operations return exactly one of these; nothing escapes as a panic.
type Kind string

const (
	// KindValidation: a client-side precondition failed; no request was sent.
	KindValidation Kind = "validation"
	// KindUnauthenticated: no token where one is required; no request was sent.
	KindUnauthenticated Kind = "unauthenticated"
	// KindHTTP: the server responded with a non-2xx status.
	KindHTTP Kind = "http_error"
	// KindTransport: the request never completed (connectivity, timeout, DNS).
	KindTransport Kind = "transport"
	// KindMalformed: a 2xx response body was unparseable or missing required fields.
	KindMalformed Kind = "malformed_response"
)

// Error is the one error shape returned across the client boundary.
type Error struct {
	Kind       Kind
	StatusCode int // set only for KindHTTP
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindHTTP:
		return fmt.Sprintf("api: server rejected request (status %d): %s", e.StatusCode, e.Message)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("api: %s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("api: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("api: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Unauthenticated(cause error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: "no active session", Err: cause}
}

func HTTPError(status int, msg string) *Error {
	return &Error{Kind: KindHTTP, StatusCode: status, Message: msg}
}

func Transport(cause error) *Error {
	return &Error{Kind: KindTransport, Message: "request did not complete", Err: cause}
}

func Malformed(cause error) *Error {
	return &Error{Kind: KindMalformed, Message: "unusable response body", Err: cause}
}

// KindOf reports the classification of err, or "" for errors that did not
// originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

// StatusOf returns the HTTP status for KindHTTP errors, 0 otherwise.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindHTTP {
		return e.StatusCode
	}
	return 0
}
