package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
)

type GameRepository struct {
	store *Store
}

func NewGameRepository(store *Store) *GameRepository {
	return &GameRepository{store: store}
}

func (r *GameRepository) ListCandidates(_ context.Context, sport, homeTeamID, awayTeamID string, from, to time.Time) ([]game.Game, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]game.Game, 0, 2)
	for _, g := range r.store.games {
		if g.Sport != sport || g.HomeTeamID != homeTeamID || g.AwayTeamID != awayTeamID {
			continue
		}
		if g.StartTime.Before(from) || g.StartTime.After(to) {
			continue
		}
		out = append(out, cloneGame(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *GameRepository) Create(_ context.Context, g game.Game) (game.Game, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := gameKey(g)
	if id, ok := r.store.gameKeys[key]; ok {
		return game.Game{}, fmt.Errorf("%w: conflicts with game %d", game.ErrDuplicateGame, id)
	}

	r.store.nextGameID++
	now := r.store.now()
	g.ID = r.store.nextGameID
	g.CreatedAt = now
	g.UpdatedAt = now
	r.store.games[g.ID] = cloneGame(g)
	r.store.gameKeys[key] = g.ID
	return cloneGame(g), nil
}

func (r *GameRepository) GetByID(_ context.Context, id int64) (game.Game, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	g, ok := r.store.games[id]
	if !ok {
		return game.Game{}, false, nil
	}
	return cloneGame(g), true, nil
}

func (r *GameRepository) List(_ context.Context, filter game.ListFilter) ([]game.Game, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]game.Game, 0, len(r.store.games))
	for _, g := range r.store.games {
		if filter.Sport != "" && g.Sport != filter.Sport {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && g.StartTime.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && g.StartTime.After(filter.To) {
			continue
		}
		out = append(out, cloneGame(g))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *GameRepository) RecordResult(_ context.Context, id int64, result game.Result) (game.Game, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	g, ok := r.store.games[id]
	if !ok {
		return game.Game{}, fmt.Errorf("%w: id=%d", game.ErrGameNotFound, id)
	}
	g.Status = result.Status
	g.ActualOutcome = result.ActualOutcome
	g.HomeScore = result.HomeScore
	g.AwayScore = result.AwayScore
	g.UpdatedAt = r.store.now()
	r.store.games[id] = cloneGame(g)
	return cloneGame(g), nil
}

func gameKey(g game.Game) string {
	return fmt.Sprintf("%s|%s|%s|%d", g.Sport, g.HomeTeamName, g.AwayTeamName, g.StartTime.UTC().Unix())
}

func cloneGame(g game.Game) game.Game {
	if g.ActualOutcome != nil {
		v := *g.ActualOutcome
		g.ActualOutcome = &v
	}
	if g.HomeScore != nil {
		v := *g.HomeScore
		g.HomeScore = &v
	}
	if g.AwayScore != nil {
		v := *g.AwayScore
		g.AwayScore = &v
	}
	return g
}
