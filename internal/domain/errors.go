package domain

import (
	"errors"
	"net/http"
)

// ErrorKind tags an Error as either an anticipated failure or an internal fault.
type ErrorKind int

const (
	// KindOperational errors are safe to reveal to the caller.
	KindOperational ErrorKind = iota + 1
	// KindUnexpected errors are logged and hidden behind a generic message.
	KindUnexpected
)

const (
	defaultNotFoundMessage   = "Resource not found"
	defaultValidationMessage = "Invalid Input"
)

// ErrProductNotFound is returned by repositories when no record has the requested id.
var ErrProductNotFound = NewNotFound("product not found")

// Error is the single error value shared by every layer of the service.
// Only the HTTP error translator inspects Kind and StatusCode.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsOperational reports whether the error may be shown to the client as is.
func (e *Error) IsOperational() bool {
	return e.Kind == KindOperational
}

// Status returns "fail" for client errors and "error" for everything else.
func (e *Error) Status() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return "fail"
	}
	return "error"
}

// NewOperational creates a client-facing error with an explicit HTTP status code.
func NewOperational(message string, statusCode int) *Error {
	return &Error{Kind: KindOperational, Message: message, StatusCode: statusCode}
}

// NewNotFound creates a 404 operational error.
func NewNotFound(message string) *Error {
	if message == "" {
		message = defaultNotFoundMessage
	}
	return NewOperational(message, http.StatusNotFound)
}

// NewValidation creates a 400 operational error for invalid input.
func NewValidation(message string) *Error {
	if message == "" {
		message = defaultValidationMessage
	}
	return NewOperational(message, http.StatusBadRequest)
}

func NewBadRequest(message string) *Error {
	return NewOperational(message, http.StatusBadRequest)
}

func NewUnauthorized(message string) *Error {
	return NewOperational(message, http.StatusUnauthorized)
}

func NewForbidden(message string) *Error {
	return NewOperational(message, http.StatusForbidden)
}

// NewUnexpected wraps an internal fault. Its message never reaches the client.
func NewUnexpected(cause error) *Error {
	return &Error{Kind: KindUnexpected, StatusCode: http.StatusInternalServerError, Cause: cause}
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}
