package usecase

import (
	"testing"
	"time"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/team"
	"github.com/riskibarqy/odds-ledger/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/odds-ledger/internal/platform/cache"
	"github.com/riskibarqy/odds-ledger/internal/platform/id"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
)

type testEnv struct {
	matcher      *team.Matcher
	store        *memory.Store
	gameRepo     *memory.GameRepository
	platformRepo *memory.PlatformRepository
	marketRepo   *memory.MarketRepository
	resolver     *GameResolver
	ingestion    *IngestionService
	results      *ResultService
	accuracy     *AccuracyService
	games        *GameService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	directory, err := team.NewReferenceDirectory()
	if err != nil {
		t.Fatalf("load reference directory: %v", err)
	}

	env := &testEnv{
		matcher: team.NewMatcher(directory),
		store:   memory.NewStore(),
	}
	env.gameRepo = memory.NewGameRepository(env.store)
	env.platformRepo = memory.NewPlatformRepository(env.store)
	env.marketRepo = memory.NewMarketRepository(env.store)

	logger := logging.NewNop()
	env.resolver = NewGameResolver(env.matcher, env.gameRepo, game.DefaultMatchWindow(), logger)
	env.accuracy = NewAccuracyService(env.platformRepo, memory.NewAccuracyRepository(env.store), cache.NewMemoryJSONStore(time.Minute), 1)
	env.ingestion = NewIngestionService(
		env.resolver,
		env.platformRepo,
		env.marketRepo,
		id.NewUUIDGenerator(),
		env.accuracy,
		IngestionConfig{Workers: 4, MaxBatch: 50},
		logger,
	)
	env.results = NewResultService(env.gameRepo, env.accuracy, logger)
	env.games = NewGameService(env.gameRepo, env.marketRepo)
	return env
}

func float(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}

var firstPitch = time.Date(2025, 7, 4, 23, 5, 0, 0, time.UTC)

func moneylineQuote(platformName, nativeID string, observedAt time.Time, home, away float64) Quote {
	return Quote{
		Platform:       platformName,
		NativeMarketID: nativeID,
		Sport:          "mlb",
		RawHome:        "New York Yankees",
		RawAway:        "Boston Red Sox",
		StartTime:      firstPitch,
		ObservedAt:     observedAt,
		Outcomes: []QuoteOutcome{
			{Type: "home_win", DecimalOdds: float(home)},
			{Type: "away_win", DecimalOdds: float(away)},
		},
	}
}
