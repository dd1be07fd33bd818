// Package scanerr defines the scanner's shared error types, used
// across the store, rulesdb, and rete packages so callers can
// classify failures (storage vs. validation vs. not-found) without
// string-matching error messages.
package scanerr

import "fmt"

// StoreError wraps a failure from a backing store (Redis or
// Postgres) with the operation that failed.
type StoreError struct {
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error in %s: %v", e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a resource that does not exist.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s not found: %v", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// ValidationError represents a rule or filter that failed validation
// before being compiled into the RETE network.
type ValidationError struct {
	Field  string
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Reason)
}

// WrapStoreError wraps err with operation context. Returns nil if err
// is nil so callers can write `return scanerr.WrapStoreError("x", err)`
// unconditionally.
func WrapStoreError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Operation: operation, Err: err}
}

// NewNotFoundError creates a NotFoundError for resource with no ID.
func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

// NewNotFoundErrorWithID creates a NotFoundError identifying a specific ID.
func NewNotFoundErrorWithID(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewValidationError creates a ValidationError without a captured value.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NewValidationErrorWithValue creates a ValidationError including the
// offending value.
func NewValidationErrorWithValue(field, reason string, value any) error {
	return &ValidationError{Field: field, Reason: reason, Value: value}
}
