package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/gasguard/internal/persistence"
	"github.com/example/gasguard/internal/persistence/memory"
)

func newResolverHarness(t *testing.T) (*AssignmentResolver, *memory.Storage, *testClock) {
	t.Helper()
	store := memory.New()
	clock := newTestClock()
	resolver := NewAssignmentResolver(store, store, sequence("ref"), clock.Now)
	return resolver, store, clock
}

func TestAssignmentResolver_AssignIsIdempotent(t *testing.T) {
	ctx := context.Background()
	resolver, _, clock := newResolverHarness(t)

	alice, err := resolver.AddTechnician(ctx, AddTechnicianInput{Name: "Alice", Location: persistence.GeoPoint{Lat: 48.85, Lng: 2.35}})
	if err != nil {
		t.Fatalf("AddTechnician returned error: %v", err)
	}
	intervention, err := resolver.AddIntervention(ctx, "Maintenance capteur A")
	if err != nil {
		t.Fatalf("AddIntervention returned error: %v", err)
	}

	first, err := resolver.Assign(ctx, intervention.ID, alice.ID)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	clock.Advance(time.Hour)
	second, err := resolver.Assign(ctx, intervention.ID, alice.ID)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	if second.AssignedTo == nil || *second.AssignedTo != alice.ID {
		t.Fatalf("expected assignment to %s, got %v", alice.ID, second.AssignedTo)
	}
	if !second.AssignedAt.Equal(*first.AssignedAt) {
		t.Fatalf("expected repeated assignment to be a no-op, got %v then %v", first.AssignedAt, second.AssignedAt)
	}

	all, err := resolver.Interventions(ctx, InterventionFilter{})
	if err != nil {
		t.Fatalf("Interventions returned error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one intervention record, got %d", len(all))
	}
}

func TestAssignmentResolver_ReassignAndUnassign(t *testing.T) {
	ctx := context.Background()
	resolver, _, _ := newResolverHarness(t)

	alice, _ := resolver.AddTechnician(ctx, AddTechnicianInput{Name: "Alice", Location: persistence.GeoPoint{Lat: 48.85, Lng: 2.35}})
	bob, _ := resolver.AddTechnician(ctx, AddTechnicianInput{Name: "Bob", Location: persistence.GeoPoint{Lat: 43.6, Lng: 1.44}})
	intervention, _ := resolver.AddIntervention(ctx, "Étalonnage détecteur B")

	if _, err := resolver.Assign(ctx, intervention.ID, alice.ID); err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	reassigned, err := resolver.Assign(ctx, intervention.ID, bob.ID)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	if *reassigned.AssignedTo != bob.ID {
		t.Fatalf("expected overwrite to %s, got %s", bob.ID, *reassigned.AssignedTo)
	}

	assigned := true
	byBob, _ := resolver.Interventions(ctx, InterventionFilter{Assigned: &assigned, TechnicianID: bob.ID})
	if len(byBob) != 1 {
		t.Fatalf("expected one intervention for bob, got %d", len(byBob))
	}

	cleared, err := resolver.Unassign(ctx, intervention.ID)
	if err != nil {
		t.Fatalf("Unassign returned error: %v", err)
	}
	if cleared.AssignedTo != nil || cleared.AssignedAt != nil {
		t.Fatalf("expected cleared assignment, got %+v", cleared)
	}

	unassigned := false
	open, _ := resolver.Interventions(ctx, InterventionFilter{Assigned: &unassigned})
	if len(open) != 1 {
		t.Fatalf("expected one unassigned intervention, got %d", len(open))
	}
}

func TestAssignmentResolver_UnknownReferences(t *testing.T) {
	ctx := context.Background()
	resolver, store, _ := newResolverHarness(t)

	tech, _ := resolver.AddTechnician(ctx, AddTechnicianInput{Name: "Alice"})
	intervention, _ := resolver.AddIntervention(ctx, "Inspection")

	if _, err := resolver.Assign(ctx, "missing", tech.ID); !errors.Is(err, ErrUnknownIntervention) {
		t.Fatalf("expected ErrUnknownIntervention, got %v", err)
	}
	if _, err := resolver.Assign(ctx, intervention.ID, "ghost"); !errors.Is(err, ErrUnknownTechnician) {
		t.Fatalf("expected ErrUnknownTechnician, got %v", err)
	}
	if _, err := resolver.Unassign(ctx, "missing"); !errors.Is(err, ErrUnknownIntervention) {
		t.Fatalf("expected ErrUnknownIntervention, got %v", err)
	}

	stored, _ := store.GetIntervention(ctx, intervention.ID)
	if stored.AssignedTo != nil {
		t.Fatalf("expected failed assign to leave intervention untouched")
	}
}

func TestAssignmentResolver_Validation(t *testing.T) {
	ctx := context.Background()
	resolver, _, _ := newResolverHarness(t)

	_, err := resolver.AddTechnician(ctx, AddTechnicianInput{Name: "", Location: persistence.GeoPoint{Lat: 91, Lng: -181}})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || len(vErr.FieldErrors) != 3 {
		t.Fatalf("expected three field errors, got %v", err)
	}
	if _, err := resolver.AddIntervention(ctx, "  "); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
