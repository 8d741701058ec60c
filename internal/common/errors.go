package common

import (
	"errors"
	"fmt"
)

// Domain errors - use errors.Is() to check
var (
	ErrInternal = errors.New("internal error")
	ErrConfig   = errors.New("invalid configuration")
	ErrBackend  = errors.New("completion backend error")

	ErrValidation = errors.New("validation error")
)

// ValidationError represents a validation error with field details
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is implements errors.Is for ValidationError
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// WrapInternal wraps an error as an internal error with context
func WrapInternal(operation string, err error) error {
	return fmt.Errorf("%s: %w", operation, errors.Join(ErrInternal, err))
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error) error {
	return fmt.Errorf("%w: %w", ErrConfig, err)
}

func IsBackend(err error) bool {
	return errors.Is(err, ErrBackend)
}
