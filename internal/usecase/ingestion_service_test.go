package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
)

func TestIngestionService_Ingest_StoresDeviggedSnapshots(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	res, err := env.ingestion.Ingest(ctx, moneylineQuote("DraftKings", "dk-1001", firstPitch.Add(-time.Hour), 1.75, 2.15))
	require.NoError(t, err)
	require.Equal(t, IngestStatusStored, res.Status)
	require.Equal(t, 2, res.Inserted)
	require.True(t, res.GameCreated)
	require.Equal(t, string(market.DevigOK), res.DevigStatus)

	timeline, err := env.games.Timeline(ctx, res.GameID)
	require.NoError(t, err)
	require.Len(t, timeline.Entries, 2)

	var sum float64
	for _, e := range timeline.Entries {
		require.NotNil(t, e.DevigProbability)
		sum += *e.DevigProbability
		assert.Equal(t, "draftkings", e.PlatformName)
		assert.Equal(t, "sportsbook", e.PlatformType)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestIngestionService_Ingest_IsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()
	q := moneylineQuote("FanDuel", "fd-77", firstPitch.Add(-30*time.Minute), 1.80, 2.05)

	first, err := env.ingestion.Ingest(ctx, q)
	require.NoError(t, err)
	second, err := env.ingestion.Ingest(ctx, q)
	require.NoError(t, err)

	require.Equal(t, 2, first.Inserted)
	require.Equal(t, 0, second.Inserted)
	require.Equal(t, 2, second.Duplicates)
	require.Equal(t, first.MarketID, second.MarketID)

	timeline, err := env.games.Timeline(ctx, first.GameID)
	require.NoError(t, err)
	require.Len(t, timeline.Entries, 2)
}

func TestIngestionService_Ingest_ClosingLineIsLatestPreStart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	observations := []time.Duration{-2 * time.Hour, -10 * time.Minute, 15 * time.Minute, -45 * time.Minute}
	var gameID int64
	for i, offset := range observations {
		res, err := env.ingestion.Ingest(ctx, moneylineQuote("BetMGM", "mgm-5", firstPitch.Add(offset), 1.70+float64(i)*0.01, 2.20))
		require.NoError(t, err)
		gameID = res.GameID
	}

	timeline, err := env.games.Timeline(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, timeline.Entries, 8)

	closing := make(map[game.OutcomeType][]time.Time)
	for _, e := range timeline.Entries {
		if e.IsClosingLine {
			closing[e.OutcomeType] = append(closing[e.OutcomeType], e.ObservedAt)
		}
	}
	require.Len(t, closing, 2)
	for outcome, times := range closing {
		require.Len(t, times, 1, "outcome %s", outcome)
		require.True(t, times[0].Equal(firstPitch.Add(-10*time.Minute)), "outcome %s closing at %s", outcome, times[0])
	}
}

func TestIngestionService_Ingest_InvalidOddsStoresRemainder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	res, err := env.ingestion.Ingest(t.Context(), moneylineQuote("Caesars", "cz-9", firstPitch.Add(-time.Hour), 0.95, 2.10))
	require.NoError(t, err)
	require.Equal(t, IngestStatusPartial, res.Status)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, string(market.DevigFailed), res.DevigStatus)
}

func TestIngestionService_Ingest_ConvergenceFailureIsPending(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	res, err := env.ingestion.Ingest(ctx, moneylineQuote("Pinnacle", "pin-1", firstPitch.Add(-time.Hour), 1.0000000001, 1.0000000001))
	require.NoError(t, err)
	require.Equal(t, IngestStatusPartial, res.Status)
	require.Equal(t, string(market.DevigPending), res.DevigStatus)

	normalizer := NewNormalizationService(env.marketRepo, env.accuracy, 2, nil)
	out, err := normalizer.ReprocessPending(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 1, out.Groups)
	require.Equal(t, 1, out.StillPending)
	require.Equal(t, 0, out.Resolved)
}

func TestIngestionService_Ingest_ResolvesYesTokensByLabel(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	res, err := env.ingestion.Ingest(t.Context(), Quote{
		Platform:       "Kalshi",
		NativeMarketID: "KXMLBGAME-25JUL04BOSNYY",
		Sport:          "mlb",
		Title:          "Boston Red Sox at New York Yankees",
		StartTime:      firstPitch,
		ObservedAt:     firstPitch.Add(-3 * time.Hour),
		Outcomes: []QuoteOutcome{
			{Label: "Red Sox", Price: float(0.45)},
			{Label: "Yankees", Price: float(0.58)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, IngestStatusStored, res.Status)

	timeline, err := env.games.Timeline(t.Context(), res.GameID)
	require.NoError(t, err)
	require.Len(t, timeline.Entries, 2)
	for _, e := range timeline.Entries {
		assert.Equal(t, "prediction_market", e.PlatformType)
		if e.OutcomeType == game.OutcomeHomeWin {
			assert.InDelta(t, 1/0.58, e.RawOdds, 1e-9)
		}
	}
	require.Equal(t, "mlb-nyy", timeline.Game.HomeTeamID)
}

func TestIngestionService_Ingest_DevigsYesTokensQuotedSeparately(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()
	observed := firstPitch.Add(-2 * time.Hour)

	token := func(label string, price float64) Quote {
		return Quote{
			Platform:       "Kalshi",
			NativeMarketID: "KXMLBGAME-NYYBOS",
			Sport:          "mlb",
			Title:          "Boston Red Sox at New York Yankees",
			StartTime:      firstPitch,
			ObservedAt:     observed,
			Outcomes:       []QuoteOutcome{{Label: label, Price: float(price)}},
		}
	}

	first, err := env.ingestion.Ingest(ctx, token("Yankees", 0.56))
	require.NoError(t, err)
	require.Equal(t, IngestStatusPartial, first.Status)
	require.Equal(t, string(market.DevigFailed), first.DevigStatus)

	second, err := env.ingestion.Ingest(ctx, token("Red Sox", 0.47))
	require.NoError(t, err)
	require.Equal(t, IngestStatusStored, second.Status)
	require.Equal(t, string(market.DevigOK), second.DevigStatus)
	require.Equal(t, first.MarketID, second.MarketID)

	rows, err := env.marketRepo.ListAt(ctx, second.MarketID, observed)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	var total float64
	for _, row := range rows {
		require.Equal(t, market.DevigOK, row.DevigStatus, "outcome %s", row.OutcomeType)
		require.NotNil(t, row.DevigProbability)
		total += *row.DevigProbability
	}
	assert.InDelta(t, 1.0, total, 1e-6)
}

func TestIngestionService_Ingest_FullQuoteCompletesEarlierSide(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()
	observed := firstPitch.Add(-time.Hour)

	single := moneylineQuote("BetRivers", "br-3", observed, 1.80, 2.10)
	single.Outcomes = single.Outcomes[:1]
	_, err := env.ingestion.Ingest(ctx, single)
	require.NoError(t, err)

	full, err := env.ingestion.Ingest(ctx, moneylineQuote("BetRivers", "br-3", observed, 1.80, 2.10))
	require.NoError(t, err)
	require.Equal(t, IngestStatusStored, full.Status)
	require.Equal(t, 1, full.Inserted)
	require.Equal(t, 1, full.Duplicates)

	rows, err := env.marketRepo.ListAt(ctx, full.MarketID, observed)
	require.NoError(t, err)
	var total float64
	for _, row := range rows {
		require.Equal(t, market.DevigOK, row.DevigStatus)
		total += *row.DevigProbability
	}
	assert.InDelta(t, 1.0, total, 1e-6)
}

func TestIngestionService_Ingest_SkipsBadQuotes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	tests := []struct {
		name  string
		quote Quote
	}{
		{
			name: "ambiguous team",
			quote: func() Quote {
				q := moneylineQuote("DraftKings", "dk-x", firstPitch, 1.9, 1.9)
				q.RawHome = "New York"
				return q
			}(),
		},
		{
			name: "unknown team",
			quote: func() Quote {
				q := moneylineQuote("DraftKings", "dk-y", firstPitch, 1.9, 1.9)
				q.RawAway = "Springfield Isotopes"
				return q
			}(),
		},
		{
			name: "draw on moneyline",
			quote: func() Quote {
				q := moneylineQuote("DraftKings", "dk-z", firstPitch, 1.9, 1.9)
				q.Outcomes = append(q.Outcomes, QuoteOutcome{Type: "draw", DecimalOdds: float(12)})
				return q
			}(),
		},
		{
			name: "two price forms",
			quote: func() Quote {
				q := moneylineQuote("DraftKings", "dk-w", firstPitch, 1.9, 1.9)
				q.Outcomes[0].Price = float(0.5)
				return q
			}(),
		},
	}

	for _, tc := range tests {
		res, err := env.ingestion.Ingest(ctx, tc.quote)
		require.Error(t, err, tc.name)
		require.Equal(t, IngestStatusSkipped, res.Status, tc.name)
		require.Zero(t, res.Inserted, tc.name)
	}
}

func TestIngestionService_IngestBatch_ReportsPerQuoteStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	observed := firstPitch.Add(-90 * time.Minute)

	bad := moneylineQuote("Polymarket", "pm-bad", observed, 1.9, 1.9)
	bad.RawAway = "Nowhere Nine"
	american := moneylineQuote("Bovada", "bov-1", observed, 0, 0)
	american.Outcomes = []QuoteOutcome{
		{Type: "home", AmericanOdds: float(-140)},
		{Type: "away", AmericanOdds: float(120)},
	}

	quotes := []Quote{
		moneylineQuote("DraftKings", "dk-1", observed, 1.72, 2.20),
		moneylineQuote("FanDuel", "fd-1", observed.Add(time.Minute), 1.74, 2.16),
		bad,
		american,
		moneylineQuote("DraftKings", "dk-1", observed, 1.72, 2.20),
	}

	out, err := env.ingestion.IngestBatch(t.Context(), quotes)
	require.NoError(t, err)
	require.NotEmpty(t, out.RunID)
	require.Equal(t, 5, out.Total)
	require.Equal(t, 4, out.Stored)
	require.Equal(t, 1, out.Skipped)
	require.Equal(t, 0, out.Failed)
	require.Equal(t, 6, out.Inserted)
	require.Equal(t, 2, out.Duplicates)
	require.Equal(t, 4, out.Platforms)
	require.Equal(t, IngestStatusSkipped, out.Items[2].Status)

	games, err := env.games.List(t.Context(), GameListInput{Sport: "mlb"})
	require.NoError(t, err)
	require.Len(t, games, 1)
}

func TestIngestionService_IngestBatch_RejectsOversizedBatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	quotes := make([]Quote, 51)
	for i := range quotes {
		quotes[i] = moneylineQuote("DraftKings", "dk", firstPitch, 1.9, 1.9)
	}

	_, err := env.ingestion.IngestBatch(t.Context(), quotes)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.ingestion.IngestBatch(t.Context(), nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}
