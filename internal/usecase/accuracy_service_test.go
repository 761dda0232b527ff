package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccuracyService_Score_CoinFlipPlatform(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	flat, err := env.ingestion.Ingest(ctx, moneylineQuote("Kalshi", "k-1", firstPitch.Add(-20*time.Minute), 2.0, 2.0))
	require.NoError(t, err)
	_, err = env.ingestion.Ingest(ctx, moneylineQuote("DraftKings", "dk-1", firstPitch.Add(-20*time.Minute), 1.5, 2.8))
	require.NoError(t, err)

	reports, err := env.accuracy.Score(ctx, AccuracyQuery{})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		require.True(t, r.InsufficientData, r.Platform)
		require.Nil(t, r.Brier, r.Platform)
	}

	_, err = env.results.RecordResult(ctx, RecordResultInput{GameID: flat.GameID, HomeScore: intPtr(4), AwayScore: intPtr(1)})
	require.NoError(t, err)

	reports, err = env.accuracy.Score(ctx, AccuracyQuery{Platform: "kalshi"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "kalshi", reports[0].Platform)
	require.Equal(t, "closing", reports[0].Window)
	require.False(t, reports[0].InsufficientData)
	require.Equal(t, 1, reports[0].Predictions)
	require.NotNil(t, reports[0].Brier)
	require.InDelta(t, 0.25, *reports[0].Brier, 1e-9)
	require.InDelta(t, 0.5, *reports[0].AvgPredicted, 1e-9)
	require.InDelta(t, 0.0, *reports[0].RawAccuracy, 1e-9)

	reports, err = env.accuracy.Score(ctx, AccuracyQuery{Platform: "draftkings", Window: "before:30m"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.InDelta(t, 1.0, *reports[0].RawAccuracy, 1e-9)
	require.Less(t, *reports[0].Brier, 0.25)
	require.Equal(t, "before:30m0s", reports[0].Window)
}

func TestAccuracyService_Score_ValidatesQuery(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, err := env.accuracy.Score(t.Context(), AccuracyQuery{Window: "after:5m"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.accuracy.Score(t.Context(), AccuracyQuery{OutcomeType: "overtime"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.accuracy.Score(t.Context(), AccuracyQuery{Platform: "betfair"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAccuracyService_Score_OutcomeScope(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	res, err := env.ingestion.Ingest(ctx, moneylineQuote("FanDuel", "fd-9", firstPitch.Add(-5*time.Minute), 2.0, 2.0))
	require.NoError(t, err)
	_, err = env.results.RecordResult(ctx, RecordResultInput{GameID: res.GameID, ActualOutcome: "home_win"})
	require.NoError(t, err)

	reports, err := env.accuracy.Score(ctx, AccuracyQuery{OutcomeType: "home_win"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "home_win", reports[0].OutcomeScope)
	require.InDelta(t, 0.25, *reports[0].Brier, 1e-9)
}
