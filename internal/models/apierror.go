package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies API errors into the closed taxonomy the HTTP layer
// maps onto status codes.
type ErrorKind int

const (
	// KindInvalidArgument is malformed or missing caller input, always client-fixable
	KindInvalidArgument ErrorKind = iota
	// KindUnauthenticated is a missing or unresolvable token
	KindUnauthenticated
	// KindForbidden is a valid caller with insufficient role
	KindForbidden
	// KindNotFound is an absent target record
	KindNotFound
	// KindUpstream is a failed identity-provider or store call
	KindUpstream
	// KindOrphaned means a compensating call itself failed and the two stores
	// are now out of sync; manual cleanup is required
	KindOrphaned
)

// APIError is an error carrying a taxonomy kind and a caller-safe message.
// The wrapped cause (if any) is logged server-side but never serialized.
type APIError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches two APIErrors by kind so callers can test against the sentinel
// constructors with errors.Is.
func (e *APIError) Is(target error) bool {
	var apiErr *APIError
	if !errors.As(target, &apiErr) {
		return false
	}
	return e.Kind == apiErr.Kind
}

// HTTPStatus maps the error kind to an HTTP status code
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgument builds an InvalidArgument error
func InvalidArgument(message string) *APIError {
	return &APIError{Kind: KindInvalidArgument, Message: message}
}

// Unauthenticated builds an Unauthenticated error
func Unauthenticated(message string) *APIError {
	return &APIError{Kind: KindUnauthenticated, Message: message}
}

// Forbidden builds a Forbidden error
func Forbidden(message string) *APIError {
	return &APIError{Kind: KindForbidden, Message: message}
}

// NotFound builds a NotFound error
func NotFound(message string) *APIError {
	return &APIError{Kind: KindNotFound, Message: message}
}

// Upstream wraps a provider or store failure
func Upstream(message string, err error) *APIError {
	return &APIError{Kind: KindUpstream, Message: message, Err: err}
}

// Orphaned wraps a failed compensation: the primary failure plus the
// compensating call's failure, both kept for the operator.
func Orphaned(message string, err error) *APIError {
	return &APIError{Kind: KindOrphaned, Message: message, Err: err}
}

// AsAPIError extracts an *APIError from err, or wraps err as Upstream when it
// is not one. Nil in, nil out.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Upstream("Unexpected server error", err)
}
