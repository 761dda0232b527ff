package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
)

type PlatformRepository struct {
	store *Store
}

func NewPlatformRepository(store *Store) *PlatformRepository {
	return &PlatformRepository{store: store}
}

func (r *PlatformRepository) FindOrCreate(_ context.Context, p platform.Platform) (platform.Platform, error) {
	p = p.Canonical()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.platforms {
		if existing.Name == p.Name && existing.Region == p.Region {
			return existing, nil
		}
	}

	r.store.nextPlatformID++
	p.ID = r.store.nextPlatformID
	r.store.platforms[p.ID] = p
	return p, nil
}

func (r *PlatformRepository) List(_ context.Context) ([]platform.Platform, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]platform.Platform, 0, len(r.store.platforms))
	for _, p := range r.store.platforms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
