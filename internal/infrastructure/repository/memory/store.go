package memory

import (
	"sync"
	"time"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
)

// Store is the shared in-process database behind the memory repositories.
// It enforces the same identity rules as the relational schema.
type Store struct {
	mu sync.RWMutex

	nextGameID     int64
	nextPlatformID int64
	nextMarketID   int64
	nextOutcomeID  int64
	nextSnapshotID int64

	games     map[int64]game.Game
	gameKeys  map[string]int64
	platforms map[int64]platform.Platform
	markets   map[int64]market.Market
	outcomes  map[int64]market.Outcome
	snapshots map[int64]market.Snapshot

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		games:     make(map[int64]game.Game),
		gameKeys:  make(map[string]int64),
		platforms: make(map[int64]platform.Platform),
		markets:   make(map[int64]market.Market),
		outcomes:  make(map[int64]market.Outcome),
		snapshots: make(map[int64]market.Snapshot),
		now:       func() time.Time { return time.Now().UTC() },
	}
}
