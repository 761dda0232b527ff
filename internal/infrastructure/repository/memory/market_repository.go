package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/odds-ledger/internal/domain/market"
)

type MarketRepository struct {
	store *Store
}

func NewMarketRepository(store *Store) *MarketRepository {
	return &MarketRepository{store: store}
}

func (r *MarketRepository) FindOrCreateMarket(_ context.Context, m market.Market) (market.Market, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.markets {
		if existing.PlatformID == m.PlatformID && existing.NativeID == m.NativeID {
			return existing, nil
		}
	}
	if _, ok := r.store.games[m.GameID]; !ok {
		return market.Market{}, fmt.Errorf("market references unknown game %d", m.GameID)
	}

	r.store.nextMarketID++
	m.ID = r.store.nextMarketID
	m.CreatedAt = r.store.now()
	r.store.markets[m.ID] = m
	return m, nil
}

func (r *MarketRepository) FindOrCreateOutcomes(_ context.Context, marketID int64, outcomes []market.Outcome) ([]market.Outcome, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.markets[marketID]; !ok {
		return nil, fmt.Errorf("unknown market %d", marketID)
	}

	out := make([]market.Outcome, 0, len(outcomes))
	for _, want := range outcomes {
		found := false
		for _, existing := range r.store.outcomes {
			if existing.MarketID == marketID && existing.Type == want.Type {
				out = append(out, existing)
				found = true
				break
			}
		}
		if found {
			continue
		}

		r.store.nextOutcomeID++
		want.ID = r.store.nextOutcomeID
		want.MarketID = marketID
		r.store.outcomes[want.ID] = want
		out = append(out, want)
	}
	return out, nil
}

func (r *MarketRepository) SaveSnapshots(_ context.Context, gameStart time.Time, snapshots []market.Snapshot) (market.SaveResult, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := market.SaveResult{Closing: make(map[int64]int64)}
	touched := make(map[int64]struct{}, len(snapshots))
	resolved := make([]market.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		o, ok := r.store.outcomes[s.OutcomeID]
		if !ok {
			return market.SaveResult{}, fmt.Errorf("unknown outcome %d", s.OutcomeID)
		}
		touched[s.OutcomeID] = struct{}{}
		s.MarketID = o.MarketID
		s.OutcomeType = o.Type
		s.ObservedAt = s.ObservedAt.UTC()
		resolved = append(resolved, s)

		if r.snapshotExists(s.OutcomeID, s.ObservedAt) {
			result.Duplicates++
			continue
		}

		r.store.nextSnapshotID++
		s.ID = r.store.nextSnapshotID
		s.DevigProbability, s.DevigOdds = nil, nil
		s.DevigStatus = market.DevigFailed
		s.IsClosingLine = false
		s.CreatedAt = r.store.now()
		r.store.snapshots[s.ID] = cloneSnapshot(s)
		result.Inserted++
	}

	for _, obs := range market.Observations(resolved) {
		result.Observations = append(result.Observations, r.devigObservation(obs))
	}

	for outcomeID := range touched {
		if id, ok := r.recomputeClosing(outcomeID, gameStart); ok {
			result.Closing[outcomeID] = id
		}
	}
	return result, nil
}

// devigObservation re-devigs every stored row of one market observation.
// The caller holds store.mu.
func (r *MarketRepository) devigObservation(obs market.Observation) market.Observation {
	rows := make([]market.Snapshot, 0, 3)
	for _, s := range r.store.snapshots {
		if s.MarketID == obs.MarketID && s.ObservedAt.Equal(obs.ObservedAt) {
			rows = append(rows, cloneSnapshot(s))
		}
	}
	sortSnapshots(rows)

	outcomes := 0
	for _, o := range r.store.outcomes {
		if o.MarketID == obs.MarketID {
			outcomes++
		}
	}

	obs.Err = market.DevigObservation(rows, outcomes)
	obs.Rows = len(rows)
	for _, s := range rows {
		r.store.snapshots[s.ID] = s
	}
	if len(rows) > 0 {
		obs.Status = rows[0].DevigStatus
	}
	return obs
}

func (r *MarketRepository) snapshotExists(outcomeID int64, observedAt time.Time) bool {
	for _, s := range r.store.snapshots {
		if s.OutcomeID == outcomeID && s.ObservedAt.Equal(observedAt) {
			return true
		}
	}
	return false
}

func (r *MarketRepository) recomputeClosing(outcomeID int64, gameStart time.Time) (int64, bool) {
	rows := make([]market.Snapshot, 0, 8)
	for id, s := range r.store.snapshots {
		if s.OutcomeID != outcomeID {
			continue
		}
		if s.IsClosingLine {
			s.IsClosingLine = false
			r.store.snapshots[id] = s
		}
		rows = append(rows, s)
	}

	closing, ok := market.SelectClosing(rows, gameStart)
	if !ok {
		return 0, false
	}
	s := r.store.snapshots[closing.ID]
	s.IsClosingLine = true
	r.store.snapshots[closing.ID] = s
	return closing.ID, true
}

func (r *MarketRepository) ListPending(_ context.Context, limit int) ([]market.Snapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]market.Snapshot, 0, 16)
	for _, s := range r.store.snapshots {
		if s.DevigStatus == market.DevigPending {
			out = append(out, cloneSnapshot(s))
		}
	}
	sortSnapshots(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MarketRepository) ListAt(_ context.Context, marketID int64, observedAt time.Time) ([]market.Snapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]market.Snapshot, 0, 3)
	for _, s := range r.store.snapshots {
		if s.MarketID == marketID && s.ObservedAt.Equal(observedAt) {
			out = append(out, cloneSnapshot(s))
		}
	}
	sortSnapshots(out)
	return out, nil
}

func (r *MarketRepository) UpdateDevig(_ context.Context, snapshots []market.Snapshot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, s := range snapshots {
		existing, ok := r.store.snapshots[s.ID]
		if !ok {
			return fmt.Errorf("unknown snapshot %d", s.ID)
		}
		existing.DevigProbability = s.DevigProbability
		existing.DevigOdds = s.DevigOdds
		existing.DevigStatus = s.DevigStatus
		r.store.snapshots[s.ID] = cloneSnapshot(existing)
	}
	return nil
}

func (r *MarketRepository) ListByGame(_ context.Context, gameID int64) ([]market.TimelineEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]market.TimelineEntry, 0, 32)
	for _, s := range r.store.snapshots {
		m := r.store.markets[s.MarketID]
		if m.GameID != gameID {
			continue
		}
		p := r.store.platforms[m.PlatformID]
		out = append(out, market.TimelineEntry{
			Snapshot:     cloneSnapshot(s),
			PlatformName: p.Name,
			PlatformType: string(p.Type),
			MarketName:   m.Name,
			NativeID:     m.NativeID,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ObservedAt.Equal(out[j].ObservedAt) {
			return out[i].ObservedAt.Before(out[j].ObservedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func sortSnapshots(items []market.Snapshot) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].MarketID != items[j].MarketID {
			return items[i].MarketID < items[j].MarketID
		}
		if !items[i].ObservedAt.Equal(items[j].ObservedAt) {
			return items[i].ObservedAt.Before(items[j].ObservedAt)
		}
		return items[i].ID < items[j].ID
	})
}

func cloneSnapshot(s market.Snapshot) market.Snapshot {
	if s.DevigProbability != nil {
		v := *s.DevigProbability
		s.DevigProbability = &v
	}
	if s.DevigOdds != nil {
		v := *s.DevigOdds
		s.DevigOdds = &v
	}
	return s
}
