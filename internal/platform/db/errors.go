package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicdesk/clinic/internal/platform/storage"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Classify maps pgx errors onto the storage sentinels.
func Classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return storage.ErrNotFound
	case IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	default:
		return storage.Unavailable(op, err)
	}
}
