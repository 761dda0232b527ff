package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/odds-ledger/internal/domain/accuracy"
	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	"github.com/riskibarqy/odds-ledger/internal/domain/odds"
	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
)

var start = time.Date(2025, 9, 1, 17, 10, 0, 0, time.UTC)

func seedMarket(t *testing.T, store *Store) (game.Game, market.Market, []market.Outcome) {
	t.Helper()
	ctx := t.Context()

	g, err := NewGameRepository(store).Create(ctx, game.Game{
		Sport:        "mlb",
		HomeTeamID:   "mlb-sea",
		AwayTeamID:   "mlb-hou",
		HomeTeamName: "seattle mariners",
		AwayTeamName: "houston astros",
		StartTime:    start,
		Status:       game.StatusScheduled,
	})
	require.NoError(t, err)

	p, err := NewPlatformRepository(store).FindOrCreate(ctx, platform.Platform{Name: "Polymarket"})
	require.NoError(t, err)

	repo := NewMarketRepository(store)
	m, err := repo.FindOrCreateMarket(ctx, market.Market{GameID: g.ID, PlatformID: p.ID, NativeID: "0xabc", Type: market.TypeMoneyline})
	require.NoError(t, err)

	outcomes, err := repo.FindOrCreateOutcomes(ctx, m.ID, []market.Outcome{
		{Type: game.OutcomeHomeWin, Label: "Mariners"},
		{Type: game.OutcomeAwayWin, Label: "Astros"},
	})
	require.NoError(t, err)
	return g, m, outcomes
}

func snapshotAt(o market.Outcome, at time.Time, prob float64) market.Snapshot {
	return market.Snapshot{
		OutcomeID:      o.ID,
		MarketID:       o.MarketID,
		ObservedAt:     at,
		RawOdds:        1 / prob,
		RawProbability: prob,
	}
}

func TestMarketRepository_FindOrCreateIsStable(t *testing.T) {
	store := NewStore()
	g, m, outcomes := seedMarket(t, store)
	repo := NewMarketRepository(store)

	again, err := repo.FindOrCreateMarket(t.Context(), market.Market{GameID: g.ID, PlatformID: m.PlatformID, NativeID: "0xabc"})
	require.NoError(t, err)
	require.Equal(t, m.ID, again.ID)

	same, err := repo.FindOrCreateOutcomes(t.Context(), m.ID, []market.Outcome{{Type: game.OutcomeAwayWin}})
	require.NoError(t, err)
	require.Equal(t, outcomes[1].ID, same[0].ID)

	_, err = repo.FindOrCreateMarket(t.Context(), market.Market{GameID: 999, PlatformID: m.PlatformID, NativeID: "0xdef"})
	require.Error(t, err)
}

func TestMarketRepository_SaveSnapshots_DedupesAndTracksClosing(t *testing.T) {
	store := NewStore()
	_, m, outcomes := seedMarket(t, store)
	repo := NewMarketRepository(store)
	home := outcomes[0]

	res, err := repo.SaveSnapshots(t.Context(), start, []market.Snapshot{
		snapshotAt(home, start.Add(-time.Hour), 0.55),
		snapshotAt(home, start.Add(-time.Hour), 0.55),
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Duplicates)
	firstClosing := res.Closing[home.ID]

	res, err = repo.SaveSnapshots(t.Context(), start, []market.Snapshot{snapshotAt(home, start.Add(time.Minute), 0.70)})
	require.NoError(t, err)
	require.Equal(t, firstClosing, res.Closing[home.ID], "post-start rows never close")

	res, err = repo.SaveSnapshots(t.Context(), start, []market.Snapshot{snapshotAt(home, start, 0.58)})
	require.NoError(t, err)
	require.NotEqual(t, firstClosing, res.Closing[home.ID])

	rows, err := repo.ListAt(t.Context(), m.ID, start)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].IsClosingLine)

	timeline, err := repo.ListByGame(t.Context(), m.GameID)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	closing := 0
	for _, e := range timeline {
		if e.IsClosingLine {
			closing++
		}
		require.Equal(t, "polymarket", e.PlatformName)
	}
	require.Equal(t, 1, closing)
}

func TestMarketRepository_SaveSnapshots_DevigsSplitObservation(t *testing.T) {
	store := NewStore()
	_, m, outcomes := seedMarket(t, store)
	repo := NewMarketRepository(store)
	at := start.Add(-time.Hour)

	res, err := repo.SaveSnapshots(t.Context(), start, []market.Snapshot{snapshotAt(outcomes[0], at, 1/1.8)})
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	require.Equal(t, market.DevigFailed, res.Observations[0].Status)
	require.ErrorIs(t, res.Observations[0].Err, odds.ErrInsufficientOutcomes)

	res, err = repo.SaveSnapshots(t.Context(), start, []market.Snapshot{snapshotAt(outcomes[1], at, 1/2.1)})
	require.NoError(t, err)
	require.Len(t, res.Observations, 1)
	require.Equal(t, market.DevigOK, res.Observations[0].Status)
	require.Equal(t, 2, res.Observations[0].Rows)
	require.NoError(t, res.Observations[0].Err)

	rows, err := repo.ListAt(t.Context(), m.ID, at)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	var total float64
	for _, row := range rows {
		require.Equal(t, market.DevigOK, row.DevigStatus)
		require.NotNil(t, row.DevigProbability)
		total += *row.DevigProbability
	}
	require.InDelta(t, 1.0, total, 1e-6)
	require.Greater(t, *rows[0].DevigProbability, *rows[1].DevigProbability)
}

func TestMarketRepository_SaveSnapshots_DuplicateSideCompletesObservation(t *testing.T) {
	store := NewStore()
	_, m, outcomes := seedMarket(t, store)
	repo := NewMarketRepository(store)
	at := start.Add(-30 * time.Minute)

	_, err := repo.SaveSnapshots(t.Context(), start, []market.Snapshot{snapshotAt(outcomes[0], at, 0.55)})
	require.NoError(t, err)

	res, err := repo.SaveSnapshots(t.Context(), start, []market.Snapshot{
		snapshotAt(outcomes[0], at, 0.55),
		snapshotAt(outcomes[1], at, 0.50),
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Duplicates)

	rows, err := repo.ListAt(t.Context(), m.ID, at)
	require.NoError(t, err)
	var total float64
	for _, row := range rows {
		require.Equal(t, market.DevigOK, row.DevigStatus)
		total += *row.DevigProbability
	}
	require.InDelta(t, 1.0, total, 1e-6)
}

func TestMarketRepository_PendingAndUpdateDevig(t *testing.T) {
	store := NewStore()
	_, m, outcomes := seedMarket(t, store)
	repo := NewMarketRepository(store)

	at := start.Add(-2 * time.Hour)
	_, err := repo.SaveSnapshots(t.Context(), start, []market.Snapshot{
		snapshotAt(outcomes[0], at, 1/1.9),
		snapshotAt(outcomes[1], at, 1/1.9),
	})
	require.NoError(t, err)

	rows, err := repo.ListAt(t.Context(), m.ID, at)
	require.NoError(t, err)
	for i := range rows {
		rows[i].DevigStatus = market.DevigPending
		rows[i].DevigProbability, rows[i].DevigOdds = nil, nil
	}
	require.NoError(t, repo.UpdateDevig(t.Context(), rows))

	rows, err = repo.ListPending(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, m.ID, rows[0].MarketID)

	require.NoError(t, market.ApplyDevig(rows))
	require.NoError(t, repo.UpdateDevig(t.Context(), rows))

	rows, err = repo.ListPending(t.Context(), 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestAccuracyRepository_ListPoints(t *testing.T) {
	store := NewStore()
	g, m, outcomes := seedMarket(t, store)
	repo := NewMarketRepository(store)

	_, err := repo.SaveSnapshots(t.Context(), start, []market.Snapshot{
		snapshotAt(outcomes[0], start.Add(-time.Hour), 0.6),
		snapshotAt(outcomes[1], start.Add(-time.Hour), 0.4),
		snapshotAt(outcomes[0], start.Add(time.Hour), 0.9),
	})
	require.NoError(t, err)

	points, err := NewAccuracyRepository(store).ListPoints(t.Context(), accuracy.Query{})
	require.NoError(t, err)
	require.Empty(t, points, "scheduled games are not scored")

	won := game.OutcomeHomeWin
	_, err = NewGameRepository(store).RecordResult(t.Context(), g.ID, game.Result{Status: game.StatusCompleted, ActualOutcome: &won})
	require.NoError(t, err)

	points, err = NewAccuracyRepository(store).ListPoints(t.Context(), accuracy.Query{PlatformID: m.PlatformID})
	require.NoError(t, err)
	require.Len(t, points, 2, "post-start and undevigged rows are not scored")
	for _, p := range points {
		require.Equal(t, game.OutcomeHomeWin, p.Actual)
		require.False(t, p.ObservedAt.After(p.GameStart))
	}

	points, err = NewAccuracyRepository(store).ListPoints(t.Context(), accuracy.Query{PlatformID: m.PlatformID + 1})
	require.NoError(t, err)
	require.Empty(t, points)
}
