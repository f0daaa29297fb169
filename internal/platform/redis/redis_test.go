package redis

import (
	"context"
	"testing"
)

func TestNewRedis_RejectsBadURL(t *testing.T) {
	for _, url := range []string{"", "http://localhost:6379", "redis://localhost:6379/notanumber"} {
		if _, err := NewRedis(context.Background(), url); err == nil {
			t.Errorf("expected error for %q", url)
		}
	}
}
