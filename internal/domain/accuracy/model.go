package accuracy

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
)

// Point is one devigged snapshot taken at or before the start of a
// completed game with a known outcome.
type Point struct {
	GameID      int64
	MarketID    int64
	OutcomeID   int64
	PlatformID  int64
	OutcomeType game.OutcomeType
	ObservedAt  time.Time
	GameStart   time.Time
	Probability float64
	Actual      game.OutcomeType
}

// Prediction is one platform's distribution for one game. When the
// platform lists several markets for the game, Probabilities is the mean of
// their selected observations and MarketID is the lowest market id.
type Prediction struct {
	GameID        int64
	MarketID      int64
	PlatformID    int64
	Markets       int
	ObservedAt    time.Time
	Probabilities map[game.OutcomeType]float64
	Actual        game.OutcomeType
}

// Query narrows the points read for scoring.
type Query struct {
	PlatformID int64
}

// Repository reads scoring inputs. Implementations return only points of
// completed games with an outcome, observed at or before the game start,
// with devig status ok.
type Repository interface {
	ListPoints(ctx context.Context, q Query) ([]Point, error)
}

// completeTolerance bounds how far a devigged observation may sum from 1.
const completeTolerance = 1e-6

// observation is every outcome one market priced at one timestamp.
type observation struct {
	point         Point
	probabilities map[game.OutcomeType]float64
}

func (o observation) complete() bool {
	if len(o.probabilities) < 2 {
		return false
	}
	var sum float64
	for _, p := range o.probabilities {
		sum += p
	}
	return math.Abs(sum-1) <= completeTolerance
}

// SelectPredictions builds one prediction per (platform, game). Each market
// contributes a single complete observation chosen by policy, so outcomes
// are never mixed across timestamps. Markets without a complete pre-start
// observation that prices the realized outcome are left out.
func SelectPredictions(points []Point, policy Policy) []Prediction {
	type obsKey struct {
		market int64
		at     int64
	}

	observations := make(map[obsKey]*observation)
	for _, p := range points {
		if p.ObservedAt.After(p.GameStart) {
			continue
		}
		key := obsKey{market: p.MarketID, at: p.ObservedAt.UnixNano()}
		o, ok := observations[key]
		if !ok {
			o = &observation{point: p, probabilities: make(map[game.OutcomeType]float64, 3)}
			observations[key] = o
		}
		o.probabilities[p.OutcomeType] = p.Probability
	}

	chosen := make(map[int64]*observation)
	for _, o := range observations {
		if !o.complete() {
			continue
		}
		current, ok := chosen[o.point.MarketID]
		if !ok || better(o.point, current.point, policy) {
			chosen[o.point.MarketID] = o
		}
	}

	type gameKey struct {
		platform int64
		game     int64
	}
	byGame := make(map[gameKey][]*observation)
	for _, o := range chosen {
		if _, ok := o.probabilities[o.point.Actual]; !ok {
			continue
		}
		key := gameKey{platform: o.point.PlatformID, game: o.point.GameID}
		byGame[key] = append(byGame[key], o)
	}

	out := make([]Prediction, 0, len(byGame))
	for _, markets := range byGame {
		out = append(out, foldMarkets(markets))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlatformID != out[j].PlatformID {
			return out[i].PlatformID < out[j].PlatformID
		}
		return out[i].GameID < out[j].GameID
	})
	return out
}

// foldMarkets averages the markets that share the outcome set of the
// lowest market id; markets pricing a different set are dropped.
func foldMarkets(markets []*observation) Prediction {
	sort.Slice(markets, func(i, j int) bool { return markets[i].point.MarketID < markets[j].point.MarketID })
	first := markets[0]

	pred := Prediction{
		GameID:        first.point.GameID,
		MarketID:      first.point.MarketID,
		PlatformID:    first.point.PlatformID,
		ObservedAt:    first.point.ObservedAt,
		Probabilities: make(map[game.OutcomeType]float64, len(first.probabilities)),
		Actual:        first.point.Actual,
	}
	for _, o := range markets {
		if !sameOutcomes(o.probabilities, first.probabilities) {
			continue
		}
		pred.Markets++
		for outcome, p := range o.probabilities {
			pred.Probabilities[outcome] += p
		}
	}
	for outcome := range pred.Probabilities {
		pred.Probabilities[outcome] /= float64(pred.Markets)
	}
	return pred
}

func sameOutcomes(a, b map[game.OutcomeType]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for outcome := range a {
		if _, ok := b[outcome]; !ok {
			return false
		}
	}
	return true
}

func better(candidate, current Point, policy Policy) bool {
	if policy.Kind == PolicyClosing {
		return candidate.ObservedAt.After(current.ObservedAt)
	}

	target := candidate.GameStart.Add(-policy.Offset)
	dc, dcur := absDuration(candidate.ObservedAt.Sub(target)), absDuration(current.ObservedAt.Sub(target))
	if dc != dcur {
		return dc < dcur
	}
	return candidate.ObservedAt.Before(current.ObservedAt)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
