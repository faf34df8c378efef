package db

import (
	"context"
	"testing"
)

// setupTestStore opens an isolated in-memory store for the calling test.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory(context.Background(), t.Name())
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
