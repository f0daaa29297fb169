// Package storage holds the error vocabulary and backend selection shared by
// every store adapter (postgres, mongo, memory).
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document or embedded element does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a versioned write lost a race or a unique
	// key is already taken.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable marks transient store failures. Callers may retry the
	// whole operation; no partial writes are left behind.
	ErrUnavailable = errors.New("store unavailable")
)

// Backend names a document store implementation.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendMongo    Backend = "mongo"
	BackendMemory   Backend = "memory"
)

// ParseBackend validates a configured backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendPostgres, BackendMongo, BackendMemory:
		return b, nil
	case "":
		return BackendPostgres, nil
	default:
		return "", fmt.Errorf("unknown store backend %q (want postgres, mongo or memory)", s)
	}
}

// Unavailable wraps a driver error as ErrUnavailable. Context cancellation
// stays visible through errors.Is on the returned error. Errors that already
// carry a storage sentinel are returned unchanged.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// IsRetryable reports whether err is a transient store failure that was not
// caused by the caller giving up.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrUnavailable)
}
