package backend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorage            = errors.New("storage operation failed")
	// ErrDuplicateEmail is a storage error; errors.Is(ErrDuplicateEmail, ErrStorage) holds.
	ErrDuplicateEmail = fmt.Errorf("%w: email already registered", ErrStorage)
	ErrUpstreamFetch  = errors.New("upstream fetch failed")
)

// ValidationError lists the required fields that were missing or blank.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return strings.Join(e.Missing, ", ") + " required"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func storageUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func upstreamError(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
}
