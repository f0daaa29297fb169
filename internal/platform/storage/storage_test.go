package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendPostgres, false},
		{"postgres", BackendPostgres, false},
		{"mongo", BackendMongo, false},
		{"memory", BackendMemory, false},
		{"sqlite", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackend(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnavailable_WrapsDriverError(t *testing.T) {
	driverErr := errors.New("connection refused")
	err := Unavailable("load prescription", driverErr)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if !errors.Is(err, driverErr) {
		t.Errorf("expected driver error to stay in chain, got %v", err)
	}
	if !IsRetryable(err) {
		t.Error("expected driver failure to be retryable")
	}
}

func TestUnavailable_KeepsSentinels(t *testing.T) {
	err := fmt.Errorf("prescription %s: %w", "abc", ErrNotFound)
	if got := Unavailable("load", err); got != err {
		t.Errorf("expected sentinel error unchanged, got %v", got)
	}
	if Unavailable("load", nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestUnavailable_ContextNotRetryable(t *testing.T) {
	err := Unavailable("query", context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline in chain, got %v", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable in chain, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("deadline exceeded should not be retryable")
	}
}
