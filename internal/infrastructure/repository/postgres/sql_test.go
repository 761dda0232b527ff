package postgres

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Run("matches constraint", func(t *testing.T) {
		err := fmt.Errorf("insert game: %w", &pq.Error{Code: "23505", Constraint: "uq_games_identity"})
		if !isUniqueViolation(err, "uq_games_identity") {
			t.Fatalf("expected unique violation to match")
		}
		if !isUniqueViolation(err, "") {
			t.Fatalf("expected unique violation to match any constraint")
		}
	})

	t.Run("ignores other constraint", func(t *testing.T) {
		err := &pq.Error{Code: "23505", Constraint: "uq_markets_platform_native"}
		if isUniqueViolation(err, "uq_games_identity") {
			t.Fatalf("expected constraint mismatch to be ignored")
		}
	})

	t.Run("ignores other codes", func(t *testing.T) {
		err := &pq.Error{Code: "23503", Constraint: "uq_games_identity"}
		if isUniqueViolation(err, "uq_games_identity") {
			t.Fatalf("expected foreign key violation to be ignored")
		}
		if isUniqueViolation(fakeErr("pq: duplicate key"), "") {
			t.Fatalf("expected plain error to be ignored")
		}
	})
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("select game: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped ErrNoRows to be not found")
	}
	if isNotFound(fakeErr("boom")) {
		t.Fatalf("expected other error to be found")
	}
}

func TestNullConversions(t *testing.T) {
	if got := nullFloat64ToPtr(sql.NullFloat64{}); got != nil {
		t.Fatalf("expected nil for null float, got %v", *got)
	}
	if got := nullFloat64ToPtr(sql.NullFloat64{Float64: 0.42, Valid: true}); got == nil || *got != 0.42 {
		t.Fatalf("unexpected float conversion: %v", got)
	}
	if got := nullInt64ToIntPtr(sql.NullInt64{Int64: 7, Valid: true}); got == nil || *got != 7 {
		t.Fatalf("unexpected int conversion: %v", got)
	}
	if got := nullableString("  "); got != nil {
		t.Fatalf("expected nil for blank string")
	}
}

func TestWallClock(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	local := time.Date(2025, 7, 4, 19, 5, 0, 0, ny)
	got := wallClock(local)
	if got.Hour() != 19 || got.Location() != time.UTC {
		t.Fatalf("unexpected wall clock: %s", got)
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
