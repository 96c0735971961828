package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/example/gasguard/internal/persistence"
)

func TestSnapshotHarnessSurvivesReopen(t *testing.T) {
	harness := NewSnapshotHarness(t)
	ctx := context.Background()

	if _, err := harness.Store.Load(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Load on empty store = %v, want ErrNotFound", err)
	}

	technician := NewTechnicianFixture("Alice")
	snapshot := persistence.Snapshot{
		TakenAt:     ReferenceTime(),
		Technicians: []persistence.Technician{technician},
	}
	if err := harness.Store.Save(ctx, snapshot); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	harness.Reopen(t)

	loaded, err := harness.Store.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reopen returned error: %v", err)
	}
	if len(loaded.Technicians) != 1 || loaded.Technicians[0].ID != technician.ID {
		t.Fatalf("unexpected technicians after reopen: %+v", loaded.Technicians)
	}
}
