package platform

import "testing"

func TestCanonical(t *testing.T) {
	got := Platform{Name: " Kalshi ", Region: "US"}.Canonical()
	if got.Name != "kalshi" || got.Region != "us" || got.Type != TypePredictionMarket {
		t.Fatalf("unexpected canonical platform: %+v", got)
	}

	book := Platform{Name: "Pinnacle"}.Canonical()
	if book.Type != TypeSportsbook {
		t.Fatalf("expected sportsbook, got %s", book.Type)
	}

	explicit := Platform{Name: "novig", Type: TypePredictionMarket}.Canonical()
	if explicit.Type != TypePredictionMarket {
		t.Fatalf("explicit type must be kept, got %s", explicit.Type)
	}
}

func TestParseType(t *testing.T) {
	if _, err := ParseType("exchange"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if got, err := ParseType("Sportsbook"); err != nil || got != TypeSportsbook {
		t.Fatalf("unexpected parse result: %v %v", got, err)
	}
}
