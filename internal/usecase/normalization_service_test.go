package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
)

type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) InvalidateAccuracy(context.Context) error {
	c.calls.Add(1)
	return nil
}

func seedPendingMarket(t *testing.T, env *testEnv, nativeID string) []market.Outcome {
	t.Helper()
	ctx := context.Background()

	g, err := env.gameRepo.Create(ctx, game.Game{
		Sport:        "mlb",
		HomeTeamID:   "mlb-nyy",
		AwayTeamID:   "mlb-bos",
		HomeTeamName: "new york yankees",
		AwayTeamName: "boston red sox",
		StartTime:    firstPitch,
		Status:       game.StatusScheduled,
	})
	require.NoError(t, err)

	p, err := env.platformRepo.FindOrCreate(ctx, platform.Platform{Name: "Pinnacle"})
	require.NoError(t, err)

	m, err := env.marketRepo.FindOrCreateMarket(ctx, market.Market{GameID: g.ID, PlatformID: p.ID, NativeID: nativeID, Type: market.TypeMoneyline})
	require.NoError(t, err)

	outcomes, err := env.marketRepo.FindOrCreateOutcomes(ctx, m.ID, []market.Outcome{
		{Type: game.OutcomeHomeWin, Label: "Yankees"},
		{Type: game.OutcomeAwayWin, Label: "Red Sox"},
	})
	require.NoError(t, err)
	return outcomes
}

func rawSnapshot(o market.Outcome, at time.Time, decimal float64) market.Snapshot {
	return market.Snapshot{
		OutcomeID:      o.ID,
		MarketID:       o.MarketID,
		ObservedAt:     at,
		RawOdds:        decimal,
		RawProbability: 1 / decimal,
	}
}

// markPending puts a stored observation back into the state a solver
// timeout leaves behind.
func markPending(t *testing.T, env *testEnv, marketID int64, at time.Time) {
	t.Helper()
	ctx := context.Background()

	rows, err := env.marketRepo.ListAt(ctx, marketID, at)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for i := range rows {
		rows[i].DevigStatus = market.DevigPending
		rows[i].DevigProbability, rows[i].DevigOdds = nil, nil
	}
	require.NoError(t, env.marketRepo.UpdateDevig(ctx, rows))
}

func TestNormalizationService_ReprocessPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	outcomes := seedPendingMarket(t, env, "pin-1")
	observed := firstPitch.Add(-2 * time.Hour)

	_, err := env.marketRepo.SaveSnapshots(ctx, firstPitch, []market.Snapshot{
		rawSnapshot(outcomes[0], observed, 1.80),
		rawSnapshot(outcomes[1], observed, 2.10),
	})
	require.NoError(t, err)
	markPending(t, env, outcomes[0].MarketID, observed)

	invalidator := &countingInvalidator{}
	svc := NewNormalizationService(env.marketRepo, invalidator, 2, logging.NewNop())

	result, err := svc.ReprocessPending(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Groups)
	assert.Equal(t, 1, result.Resolved)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.WorkerCount)
	assert.Equal(t, int32(1), invalidator.calls.Load())

	rows, err := env.marketRepo.ListAt(ctx, outcomes[0].MarketID, observed)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	var total float64
	for _, row := range rows {
		require.Equal(t, market.DevigOK, row.DevigStatus)
		require.NotNil(t, row.DevigProbability)
		total += *row.DevigProbability
	}
	assert.InDelta(t, 1.0, total, 1e-6)

	again, err := svc.ReprocessPending(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, again.Groups)
	assert.Equal(t, int32(1), invalidator.calls.Load())
}

func TestNormalizationService_SingleOutcomeObservationFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	outcomes := seedPendingMarket(t, env, "pin-2")

	observed := firstPitch.Add(-time.Hour)
	_, err := env.marketRepo.SaveSnapshots(ctx, firstPitch, []market.Snapshot{
		rawSnapshot(outcomes[0], observed, 1.95),
	})
	require.NoError(t, err)
	markPending(t, env, outcomes[0].MarketID, observed)

	invalidator := &countingInvalidator{}
	svc := NewNormalizationService(env.marketRepo, invalidator, 4, nil)

	result, err := svc.ReprocessPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Groups)
	assert.Equal(t, 0, result.Resolved)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, invalidator.calls.Load())

	pending, err := env.marketRepo.ListPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
