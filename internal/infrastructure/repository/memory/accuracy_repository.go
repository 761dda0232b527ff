package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/odds-ledger/internal/domain/accuracy"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
)

type AccuracyRepository struct {
	store *Store
}

func NewAccuracyRepository(store *Store) *AccuracyRepository {
	return &AccuracyRepository{store: store}
}

func (r *AccuracyRepository) ListPoints(_ context.Context, q accuracy.Query) ([]accuracy.Point, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]accuracy.Point, 0, 64)
	for _, s := range r.store.snapshots {
		if s.DevigStatus != market.DevigOK || s.DevigProbability == nil {
			continue
		}
		m := r.store.markets[s.MarketID]
		if q.PlatformID != 0 && m.PlatformID != q.PlatformID {
			continue
		}
		g, ok := r.store.games[m.GameID]
		if !ok || !g.Scoreable() || s.ObservedAt.After(g.StartTime) {
			continue
		}

		out = append(out, accuracy.Point{
			GameID:      g.ID,
			MarketID:    m.ID,
			OutcomeID:   s.OutcomeID,
			PlatformID:  m.PlatformID,
			OutcomeType: s.OutcomeType,
			ObservedAt:  s.ObservedAt,
			GameStart:   g.StartTime,
			Probability: *s.DevigProbability,
			Actual:      *g.ActualOutcome,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MarketID != out[j].MarketID {
			return out[i].MarketID < out[j].MarketID
		}
		return out[i].ObservedAt.Before(out[j].ObservedAt)
	})
	return out, nil
}
