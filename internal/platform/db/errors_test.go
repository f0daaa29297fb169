package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicdesk/clinic/internal/platform/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, storage.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), storage.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, storage.ErrConflict},
		{"other pg error", &pgconn.PgError{Code: "42P01"}, storage.ErrUnavailable},
		{"deadline", context.DeadlineExceeded, context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify("op", tt.err); !errors.Is(got, tt.want) {
				t.Errorf("Classify() = %v, want errors.Is %v", got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(errors.New("boom")) {
		t.Error("plain error is not a unique violation")
	}
	if !IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("wrapped 23505 should be a unique violation")
	}
}
