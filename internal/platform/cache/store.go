package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds a Store that was built without WithMaxEntries.
const DefaultMaxEntries = 4096

type item struct {
	value     any
	expiresAt time.Time
}

func (it item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !it.expiresAt.After(now)
}

// Stats counts lookups since the store was created.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

type Option func(*Store)

// WithMaxEntries caps the number of live keys. Zero or less keeps the default.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock replaces time.Now, mostly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a bounded in-process TTL cache. Concurrent loads of one key
// share a single loader call.
type Store struct {
	mu         sync.RWMutex
	items      map[string]item
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	flight     singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		items:      make(map[string]item),
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	if it.expired(s.now()) {
		s.mu.Lock()
		if cur, still := s.items[key]; still && cur.expired(s.now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return it.value, true
}

// Set stores value under the store-wide TTL.
func (s *Store) Set(ctx context.Context, key string, value any) {
	s.SetWithTTL(ctx, key, value, s.ttl)
}

// SetWithTTL stores value with its own lifetime; ttl <= 0 never expires.
func (s *Store) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if key == "" {
		return
	}

	now := s.now()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; !exists && len(s.items) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.items[key] = item{value: value, expiresAt: expiresAt}
}

// evictLocked drops expired keys first and, if none were expired, the key
// closest to expiry. Never-expiring keys go last.
func (s *Store) evictLocked(now time.Time) {
	var (
		victim     string
		victimAt   time.Time
		haveVictim bool
		removed    bool
	)
	for key, it := range s.items {
		if it.expired(now) {
			delete(s.items, key)
			s.evictions.Add(1)
			removed = true
			continue
		}
		if removed {
			continue
		}
		if !haveVictim || earlier(it.expiresAt, victimAt) {
			victim, victimAt, haveVictim = key, it.expiresAt, true
		}
	}
	if !removed && haveVictim {
		delete(s.items, victim)
		s.evictions.Add(1)
	}
}

func earlier(a, b time.Time) bool {
	switch {
	case a.IsZero():
		return false
	case b.IsZero():
		return true
	default:
		return a.Before(b)
	}
}

func (s *Store) Delete(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// DeletePrefix removes every key under prefix and reports how many went.
func (s *Store) DeletePrefix(_ context.Context, prefix string) int {
	if prefix == "" {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	n := len(s.items)
	s.mu.RUnlock()
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
		Entries:   n,
	}
}

// GetOrLoad returns the cached value for key or runs loader. Loader errors
// are returned to every waiter and never cached.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("cache: loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	return value, err
}
