package cache

import (
	"context"

	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
	"github.com/riskibarqy/odds-ledger/internal/domain/team"
	basecache "github.com/riskibarqy/odds-ledger/internal/platform/cache"
)

const (
	teamPrefix       = "team:"
	platformPrefix   = "platform:"
	platformListKey  = platformPrefix + "list"
	platformKeySpace = platformPrefix + "key:"
)

// lookup remembers negative answers too, so unknown ids do not reach storage
// on every request.
type lookup[T any] struct {
	value  T
	exists bool
}

func loadSlice[T any](ctx context.Context, store *basecache.Store, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	v, err := store.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return append([]T(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]T)
	return append([]T(nil), items...), nil
}

func teamListKey(sport string) string { return teamPrefix + "list:" + team.NormalizeSport(sport) }
func teamIDKey(teamID string) string  { return teamPrefix + "id:" + teamID }

// TeamRepository serves the reference directory from memory. Reference teams
// only change through Upsert, which drops every team key.
type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) ListBySport(ctx context.Context, sport string) ([]team.Team, error) {
	return loadSlice(ctx, r.cache, teamListKey(sport), func(ctx context.Context) ([]team.Team, error) {
		return r.next.ListBySport(ctx, sport)
	})
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, teamIDKey(teamID), func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return lookup[team.Team]{value: item, exists: exists}, nil
	})
	if err != nil {
		return team.Team{}, false, err
	}

	cached, _ := v.(lookup[team.Team])
	return cached.value, cached.exists, nil
}

func (r *TeamRepository) Upsert(ctx context.Context, teams []team.Team) error {
	if err := r.next.Upsert(ctx, teams); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, teamPrefix)
	return nil
}

// PlatformRepository caches the platform list read by every accuracy
// report. Platform rows are immutable once created, so resolved keys never
// expire; a new platform only drops the list.
type PlatformRepository struct {
	next  platform.Repository
	cache *basecache.Store
}

func NewPlatformRepository(next platform.Repository, cache *basecache.Store) *PlatformRepository {
	return &PlatformRepository{next: next, cache: cache}
}

func (r *PlatformRepository) FindOrCreate(ctx context.Context, p platform.Platform) (platform.Platform, error) {
	canonical := p.Canonical()
	key := platformKeySpace + canonical.Name + ":" + canonical.Region
	if v, ok := r.cache.Get(ctx, key); ok {
		if item, ok := v.(platform.Platform); ok {
			return item, nil
		}
	}

	item, err := r.next.FindOrCreate(ctx, canonical)
	if err != nil {
		return platform.Platform{}, err
	}
	r.cache.SetWithTTL(ctx, key, item, 0)
	r.cache.Delete(ctx, platformListKey)
	return item, nil
}

func (r *PlatformRepository) List(ctx context.Context) ([]platform.Platform, error) {
	return loadSlice(ctx, r.cache, platformListKey, r.next.List)
}
