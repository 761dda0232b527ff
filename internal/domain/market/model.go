package market

import (
	"strings"
	"time"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
)

type Type string

const (
	TypeMoneyline   Type = "moneyline"
	TypeMatchWinner Type = "match_winner"
)

// ParseType defaults to moneyline; match_winner is the three-way form.
func ParseType(raw string) (Type, bool) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return TypeMoneyline, true
	case TypeMoneyline, TypeMatchWinner:
		return t, true
	default:
		return "", false
	}
}

type DevigStatus string

const (
	DevigOK      DevigStatus = "ok"
	DevigFailed  DevigStatus = "failed"
	DevigPending DevigStatus = "pending"
)

// Market is one platform's listing of one game's winner bet, unique per
// (platform, native id).
type Market struct {
	ID         int64
	GameID     int64
	PlatformID int64
	NativeID   string
	Type       Type
	Name       string
	Identifier string
	CreatedAt  time.Time
}

// Outcome is one selectable result of a market, unique per (market, type).
type Outcome struct {
	ID       int64
	MarketID int64
	Type     game.OutcomeType
	Label    string
}

// Snapshot is one observed price of one outcome. Devig fields stay nil
// unless DevigStatus is ok.
type Snapshot struct {
	ID               int64
	OutcomeID        int64
	MarketID         int64
	OutcomeType      game.OutcomeType
	ObservedAt       time.Time
	RawOdds          float64
	RawProbability   float64
	DevigProbability *float64
	DevigOdds        *float64
	DevigStatus      DevigStatus
	IsClosingLine    bool
	CreatedAt        time.Time
}

// TimelineEntry is a snapshot with the context needed by dashboards.
type TimelineEntry struct {
	Snapshot
	PlatformName string
	PlatformType string
	MarketName   string
	NativeID     string
}

// Observation is the devig outcome of one market at one timestamp after a
// write touched it.
type Observation struct {
	MarketID   int64
	ObservedAt time.Time
	Rows       int
	Status     DevigStatus
	Err        error
}

// SaveResult summarizes one snapshot write.
type SaveResult struct {
	Inserted   int
	Duplicates int
	// Closing maps outcome id to the snapshot id holding the closing flag
	// after the write.
	Closing map[int64]int64
	// Observations lists every (market, observed_at) the write re-devigged,
	// in the order the write first touched them.
	Observations []Observation
}

type observationKey struct {
	marketID   int64
	observedAt int64
}

// Observations groups snapshots by (market, observed_at) in first-seen order.
func Observations(snapshots []Snapshot) []Observation {
	seen := make(map[observationKey]struct{}, len(snapshots))
	out := make([]Observation, 0, 1)
	for _, s := range snapshots {
		key := observationKey{marketID: s.MarketID, observedAt: s.ObservedAt.UnixNano()}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Observation{MarketID: s.MarketID, ObservedAt: s.ObservedAt.UTC()})
	}
	return out
}

// SelectClosing returns the latest snapshot observed at or before start.
func SelectClosing(snapshots []Snapshot, start time.Time) (Snapshot, bool) {
	var (
		best  Snapshot
		found bool
	)
	for _, s := range snapshots {
		if s.ObservedAt.After(start) {
			continue
		}
		if !found || s.ObservedAt.After(best.ObservedAt) || (s.ObservedAt.Equal(best.ObservedAt) && s.ID > best.ID) {
			best, found = s, true
		}
	}
	return best, found
}
