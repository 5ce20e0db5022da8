package application

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied is returned when the caller is unauthenticated or does not own the case.
	ErrAccessDenied = errors.New("application: access denied")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrExternalService matches every ExternalServiceError via errors.Is.
	ErrExternalService = errors.New("application: external service failure")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// ExternalServiceError wraps a failed calendar provider call.
type ExternalServiceError struct {
	Operation string
	Err       error
}

func (e *ExternalServiceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("external service: %s: %v", e.Operation, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports true for ErrExternalService so callers can match the category.
func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrExternalService
}

func externalError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var extErr *ExternalServiceError
	if errors.As(err, &extErr) {
		return err
	}
	return &ExternalServiceError{Operation: operation, Err: err}
}
