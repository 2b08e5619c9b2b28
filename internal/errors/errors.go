// Package errors provides error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeInvalidArgument indicates malformed or out-of-range input
	TypeInvalidArgument Type = "INVALID_ARGUMENT"

	// TypeNotFound indicates a jurisdiction or category missing from the tariff data
	TypeNotFound Type = "NOT_FOUND"

	// TypeSourceLoad indicates the backing tariff source could not be read or parsed
	TypeSourceLoad Type = "SOURCE_LOAD"

	// TypeRateLimited indicates a client exceeded its request budget
	TypeRateLimited Type = "RATE_LIMITED"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// TypeOf returns the type of the first *Error in err's chain, or "" if none.
func TypeOf(err error) Type {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsType checks if an error, or anything it wraps, is of a specific type
func IsType(err error, t Type) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Is(t)
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(format string, args ...interface{}) *Error {
	return Newf(TypeInvalidArgument, format, args...)
}

// NotFound creates a not found error naming the attempted keys
func NotFound(jurisdiction, category string) *Error {
	e := Newf(TypeNotFound, "no tariff data for jurisdiction %q and category %q", jurisdiction, category)
	return e.WithContext("jurisdiction", jurisdiction).WithContext("category", category)
}

// SourceLoad creates a source load error
func SourceLoad(source string, cause error) *Error {
	return Wrapf(TypeSourceLoad, cause, "failed to load tariff source %s", source).WithContext("source", source)
}

// Config creates a configuration error
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
