package resilience

import (
	"context"
	"errors"

	"github.com/riskibarqy/odds-ledger/internal/platform/cache"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
)

// GuardedJSONStore puts a circuit breaker in front of a shared cache. While
// the circuit is open reads are misses and writes are dropped, so callers
// fall through to storage instead of waiting on a dead cache.
type GuardedJSONStore struct {
	next    cache.JSONStore
	breaker *CircuitBreaker
}

func NewGuardedJSONStore(next cache.JSONStore, breaker *CircuitBreaker, logger *logging.Logger) *GuardedJSONStore {
	if logger == nil {
		logger = logging.Default()
	}
	breaker.OnStateChange(func(from, to CircuitState) {
		logger.Warn("circuit state changed", "breaker", breaker.Name(), "from", from, "to", to)
	})
	return &GuardedJSONStore{next: next, breaker: breaker}
}

func (g *GuardedJSONStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if err := g.breaker.Allow(); err != nil {
		return false, nil
	}
	ok, err := g.next.GetJSON(ctx, key, dest)
	if err != nil {
		g.breaker.RecordFailure()
		return false, err
	}
	g.breaker.RecordSuccess()
	return ok, nil
}

func (g *GuardedJSONStore) SetJSON(ctx context.Context, key string, value any) error {
	err := g.breaker.Execute(func() error {
		return g.next.SetJSON(ctx, key, value)
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil
	}
	return err
}

// Invalidate always reaches the cache; a stale document is worse than a
// slow write.
func (g *GuardedJSONStore) Invalidate(ctx context.Context, prefix string) error {
	if err := g.next.Invalidate(ctx, prefix); err != nil {
		g.breaker.RecordFailure()
		return err
	}
	g.breaker.RecordSuccess()
	return nil
}
