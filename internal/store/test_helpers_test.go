package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/ormock/internal/engine"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun begins a run for scenario and fails the test on error.
func createTestRun(t *testing.T, s *Store, scenario string) string {
	t.Helper()
	id, err := s.BeginRun(context.Background(), scenario, 0)
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	return id
}

// createTestResolution creates a resolution with minimal fields.
func createTestResolution(seq int64, op string, value any) engine.Resolution {
	return engine.Resolution{
		Seq:       seq,
		Scope:     "user",
		Operation: op,
		Args:      []any{map[string]any{"where": map[string]any{"id": 1}}},
		Strategy:  engine.StrategyQueue,
		Value:     value,
	}
}
