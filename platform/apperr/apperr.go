// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer maps them to
// appropriate HTTP status codes.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a lead could not be resolved.
	KindNotFound
	// KindInsufficientIdentity indicates an event carried no usable matching key.
	KindInsufficientIdentity
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindUnauthorized indicates an authenticity check failed (webhook signature).
	KindUnauthorized
	// KindUpstream indicates an external provider call failed or timed out.
	KindUpstream
	// KindAlreadyResolved indicates a scheduler skip: the lead's situation
	// already resolved, so the trigger is a no-op rather than a failure.
	KindAlreadyResolved
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientIdentity, KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	case KindAlreadyResolved:
		return http.StatusOK
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Convenience constructors for common error types.

// NotFound creates an error for exhausted lead resolution.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// InsufficientIdentity creates an error for events with no usable matching key.
func InsufficientIdentity(message string) *Error {
	return New(KindInsufficientIdentity, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Unauthorized creates an authenticity failure error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Upstream creates an error for a failed provider call.
func Upstream(message string, err error) *Error {
	return Wrap(KindUpstream, message, err)
}

// AlreadyResolved creates a scheduler skip outcome.
func AlreadyResolved(message string) *Error {
	return New(KindAlreadyResolved, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
