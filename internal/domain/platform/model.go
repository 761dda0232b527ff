package platform

import (
	"context"
	"fmt"
	"strings"
)

type Type string

const (
	TypePredictionMarket Type = "prediction_market"
	TypeSportsbook       Type = "sportsbook"
)

var predictionMarkets = map[string]struct{}{
	"kalshi":     {},
	"polymarket": {},
	"predictit":  {},
}

// Platform is a source of odds.
type Platform struct {
	ID     int64
	Name   string
	Type   Type
	Region string
}

// NormalizeName lowercases a platform key such as "Kalshi".
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// InferType classifies well-known exchanges as prediction markets and
// everything else as a sportsbook.
func InferType(name string) Type {
	if _, ok := predictionMarkets[NormalizeName(name)]; ok {
		return TypePredictionMarket
	}
	return TypeSportsbook
}

func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypePredictionMarket, TypeSportsbook:
		return t, nil
	default:
		return "", fmt.Errorf("unknown platform type %q", raw)
	}
}

// Canonical fills defaults so that equal platforms compare equal.
func (p Platform) Canonical() Platform {
	p.Name = NormalizeName(p.Name)
	p.Region = strings.ToLower(strings.TrimSpace(p.Region))
	if p.Type == "" {
		p.Type = InferType(p.Name)
	}
	return p
}

// Repository describes platform persistence needs from use cases.
type Repository interface {
	// FindOrCreate returns the platform keyed by (name, region).
	FindOrCreate(ctx context.Context, p Platform) (Platform, error)
	List(ctx context.Context) ([]Platform, error)
}
