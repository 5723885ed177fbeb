package service

import (
	"context"
	"errors"
	"fmt"

	"stock-alert-service/internal/store"
)

// Error kinds surfaced to callers. Use errors.Is to test for them.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrDuplicateSKU = errors.New("duplicate sku")
	ErrStoreFault   = errors.New("store unavailable")
	ErrConflict     = errors.New("conflicting concurrent update, retry")
)

// ValidationError describes a rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsRetryable reports whether retrying the whole operation may succeed
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStoreFault)
}

// ErrorKind returns a short label for err, used in metrics and logs
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateSKU):
		return "duplicate_sku"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "store_fault"
	}
}

// translate maps store errors onto the service error kinds. Errors that
// already carry a kind pass through untouched.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateSKU), errors.Is(err, ErrConflict),
		errors.Is(err, ErrStoreFault):
		return err
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, store.ErrDuplicateSKU):
		return fmt.Errorf("%w: %w", ErrDuplicateSKU, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: aborted: %w", ErrStoreFault, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreFault, err)
	}
}
