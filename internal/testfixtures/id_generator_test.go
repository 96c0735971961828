package testfixtures

import "testing"

func TestIDGeneratorIssuesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("eq")

	if got := gen.Last(); got != "" {
		t.Fatalf("Last() before first id = %q, want empty", got)
	}
	next := gen.NextFunc()
	if got := next(); got != "eq-1" {
		t.Fatalf("first id = %q, want eq-1", got)
	}
	if got := next(); got != "eq-2" {
		t.Fatalf("second id = %q, want eq-2", got)
	}
	if got := gen.Last(); got != "eq-2" {
		t.Fatalf("Last() = %q, want eq-2", got)
	}

	issued := gen.Issued()
	if len(issued) != 2 || issued[0] != "eq-1" {
		t.Fatalf("Issued() = %v", issued)
	}
	issued[0] = "mutated"
	if gen.Issued()[0] != "eq-1" {
		t.Fatal("Issued() must return a copy")
	}
}

func TestIDGeneratorReset(t *testing.T) {
	gen := NewIDGenerator("")
	gen.Next()
	gen.Next()
	gen.Reset()

	if got := gen.Next(); got != "id-1" {
		t.Fatalf("after reset got %q, want id-1", got)
	}
}

func TestNilIDGeneratorFunc(t *testing.T) {
	var gen *IDGenerator
	if got := gen.NextFunc()(); got != "" {
		t.Fatalf("nil generator produced %q", got)
	}
}
