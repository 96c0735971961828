package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/gasguard/internal/persistence"
	"github.com/example/gasguard/internal/persistence/sqlstore"
)

// SnapshotHarness provides a snapshot store backed by a temporary SQLite file
// for tests that persist and restore engine state.
type SnapshotHarness struct {
	Store persistence.SnapshotStore
	Path  string

	cleanup func()
}

// Close releases the database handle.
func (h *SnapshotHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// Reopen closes the current handle and opens the same file again, as a
// restarted process would.
func (h *SnapshotHarness) Reopen(tb testing.TB) {
	tb.Helper()
	h.Close()
	h.open(tb)
}

func (h *SnapshotHarness) open(tb testing.TB) {
	tb.Helper()
	store, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: h.Path})
	if err != nil {
		tb.Fatalf("failed to open snapshot store: %v", err)
	}
	h.Store = store
	h.cleanup = func() { _ = store.Close() }
}

// NewSnapshotHarness opens a migrated SQLite snapshot store in tb.TempDir.
// Close is registered with tb.Cleanup.
func NewSnapshotHarness(tb testing.TB) *SnapshotHarness {
	tb.Helper()

	harness := &SnapshotHarness{Path: filepath.Join(tb.TempDir(), "gasguard.db")}
	harness.open(tb)
	tb.Cleanup(harness.Close)
	return harness
}
