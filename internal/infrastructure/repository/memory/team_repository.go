package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/odds-ledger/internal/domain/team"
)

type TeamRepository struct {
	mu    sync.RWMutex
	teams map[string]team.Team
}

func NewTeamRepository(teams []team.Team) *TeamRepository {
	r := &TeamRepository{teams: make(map[string]team.Team, len(teams))}
	for _, item := range teams {
		r.teams[item.ID] = cloneTeam(item)
	}
	return r
}

func (r *TeamRepository) ListBySport(_ context.Context, sport string) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sport = team.NormalizeSport(sport)
	out := make([]team.Team, 0, 32)
	for _, item := range r.teams {
		if sport == "" || item.Sport == sport {
			out = append(out, cloneTeam(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *TeamRepository) GetByID(_ context.Context, teamID string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.teams[teamID]
	if !ok {
		return team.Team{}, false, nil
	}
	return cloneTeam(item), true, nil
}

func (r *TeamRepository) Upsert(_ context.Context, items []team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		r.teams[item.ID] = cloneTeam(item)
	}
	return nil
}

func cloneTeam(item team.Team) team.Team {
	item.Keywords = append([]string(nil), item.Keywords...)
	return item
}
