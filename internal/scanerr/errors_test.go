package scanerr

import (
	"errors"
	"testing"
)

func TestWrapStoreErrorPassesNilThrough(t *testing.T) {
	if err := WrapStoreError("get", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestWrapStoreErrorWrapsAndUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapStoreError("get", cause)

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected a *StoreError, got %T", err)
	}
	if storeErr.Operation != "get" {
		t.Errorf("expected operation 'get', got %q", storeErr.Operation)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected Unwrap to expose the original cause")
	}
}

func TestNotFoundErrorMessageIncludesID(t *testing.T) {
	err := NewNotFoundErrorWithID("user_scanner_filter", int64(42))
	if got := err.Error(); got != "user_scanner_filter not found: 42" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestNotFoundErrorMessageWithoutID(t *testing.T) {
	err := NewNotFoundError("user_scanner_filter")
	if got := err.Error(); got != "user_scanner_filter not found" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestValidationErrorMessageIncludesValue(t *testing.T) {
	err := NewValidationErrorWithValue("parameters", "produced no usable conditions", "1")
	if got := err.Error(); got != "validation failed for field 'parameters': produced no usable conditions (value: 1)" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestValidationErrorMessageWithoutValue(t *testing.T) {
	err := NewValidationError("parameters", "missing")
	if got := err.Error(); got != "validation failed for field 'parameters': missing" {
		t.Errorf("unexpected message: %q", got)
	}
}
