package domain

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Domain failure taxonomy. All of these are soft: callers translate them into
// user-facing replies and keep the session alive. Only ErrStoreFailure marks
// an unexpected persistence problem worth an error log.
var (
	ErrNotFound           = errors.New("record not found")
	ErrQuotaExceeded      = errors.New("like quota exceeded")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrStoreFailure       = errors.New("store failure")
)

// MapStoreError converts gorm/context errors into domain errors at the
// repository boundary so services never switch on infrastructure types.
func MapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
}

// Invalid wraps ErrInvalidInput with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
