package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGenerator_NewID(t *testing.T) {
	gen := NewUUIDGenerator()

	a, err := gen.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	b, err := gen.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}

	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("expected uuid, got %q: %v", a, err)
	}
}
