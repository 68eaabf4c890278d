// Package apierror defines the client-facing error taxonomy. Every error that
// reaches the HTTP layer is rendered from an *Error; anything else is treated
// as an internal failure.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error independently of the HTTP status it maps to.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
)

// Error is an error that carries its HTTP rendering.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Errors     []string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports bad input (400).
func Validation(message string, details ...string) *Error {
	return &Error{Kind: KindValidation, StatusCode: http.StatusBadRequest, Message: message, Errors: details}
}

// Conflict reports a duplicate identity (409).
func Conflict(message string) *Error {
	return &Error{Kind: KindValidation, StatusCode: http.StatusConflict, Message: message}
}

// Unauthorized reports a missing or rejected credential (401).
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, StatusCode: http.StatusUnauthorized, Message: message}
}

// UnknownAccount reports a login against an account that does not exist (404).
func UnknownAccount(message string) *Error {
	return &Error{Kind: KindUnauthorized, StatusCode: http.StatusNotFound, Message: message}
}

// NotFound reports a missing resource (404).
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, StatusCode: http.StatusNotFound, Message: message}
}

// Internal wraps an unexpected failure (500).
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// From returns err as an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("Something went wrong", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
