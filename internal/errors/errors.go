package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an ideaforge error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrMalformedState  ErrorCode = "MALFORMED_STATE"  // 422
	ErrMalformedOutput ErrorCode = "MALFORMED_OUTPUT" // 422
	ErrConfig          ErrorCode = "CONFIG"           // 500
	ErrGenerator       ErrorCode = "GENERATOR"        // 502
	ErrCancelled       ErrorCode = "CANCELLED"        // 499
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// ForgeError represents a structured error with code, status, and details.
type ForgeError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *ForgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ForgeError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ForgeError {
	return &ForgeError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing project, file, or record.
func NewNotFound(identifier string) *ForgeError {
	return &ForgeError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewMalformedState creates a 422 error for a persisted document that cannot be parsed.
func NewMalformedState(path string, cause error) *ForgeError {
	return &ForgeError{
		Code:    ErrMalformedState,
		Status:  422,
		Message: fmt.Sprintf("malformed state file %s: %v", path, cause),
		Details: map[string]any{"path": path},
		Cause:   cause,
	}
}

// NewMalformedOutput creates a 422 error for generator output that is not a usable change-set.
func NewMalformedOutput(reason string) *ForgeError {
	return &ForgeError{
		Code:    ErrMalformedOutput,
		Status:  422,
		Message: reason,
	}
}

// NewConfig creates an error for missing or invalid configuration (e.g. credentials).
func NewConfig(msg string) *ForgeError {
	return &ForgeError{
		Code:    ErrConfig,
		Status:  500,
		Message: msg,
	}
}

// NewGenerator creates a 502 error for a failed content generator call.
func NewGenerator(err error) *ForgeError {
	msg := "generator call failed"
	if err != nil {
		msg = err.Error()
	}
	return &ForgeError{
		Code:    ErrGenerator,
		Status:  502,
		Message: msg,
		Cause:   err,
	}
}

// NewCancelled creates an error for an operation interrupted by context cancellation.
func NewCancelled(operation string) *ForgeError {
	return &ForgeError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ForgeError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ForgeError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if err, or any error it wraps, is a ForgeError with the given code.
func Is(err error, code ErrorCode) bool {
	var fErr *ForgeError
	if stderrors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first ForgeError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var fErr *ForgeError
	if stderrors.As(err, &fErr) {
		return fErr.Code
	}
	return ErrInternal
}
