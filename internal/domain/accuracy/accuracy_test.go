package accuracy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
)

var (
	kalshi   = platform.Platform{ID: 1, Name: "kalshi", Type: platform.TypePredictionMarket, Region: "us"}
	pinnacle = platform.Platform{ID: 2, Name: "pinnacle", Type: platform.TypeSportsbook}
	start    = time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
)

func binary(gameID, platformID int64, home, away float64, actual game.OutcomeType) Prediction {
	return Prediction{
		GameID:     gameID,
		MarketID:   gameID*10 + platformID,
		PlatformID: platformID,
		Probabilities: map[game.OutcomeType]float64{
			game.OutcomeHomeWin: home,
			game.OutcomeAwayWin: away,
		},
		Actual: actual,
	}
}

func TestAggregate_PerfectForecasterScoresZero(t *testing.T) {
	preds := []Prediction{
		binary(1, kalshi.ID, 1, 0, game.OutcomeHomeWin),
		binary(2, kalshi.ID, 0, 1, game.OutcomeAwayWin),
	}

	reports := Aggregate([]platform.Platform{kalshi}, preds, Options{Policy: ClosingPolicy()})
	require.Len(t, reports, 1)
	r := reports[0]
	require.False(t, r.InsufficientData)
	assert.InDelta(t, 0.0, *r.Brier, 1e-12)
	assert.InDelta(t, 1.0, *r.RawAccuracy, 1e-12)
	assert.InDelta(t, 1.0, *r.AvgPredicted, 1e-12)
	assert.Equal(t, 2, r.Predictions)
	assert.Equal(t, 2, r.Games)
	assert.Equal(t, "closing", r.Window)
	assert.Equal(t, ScopeAll, r.OutcomeScope)
}

func TestAggregate_CoinFlipScoresQuarter(t *testing.T) {
	preds := []Prediction{
		binary(1, pinnacle.ID, 0.5, 0.5, game.OutcomeHomeWin),
		binary(2, pinnacle.ID, 0.5, 0.5, game.OutcomeAwayWin),
		binary(3, pinnacle.ID, 0.5, 0.5, game.OutcomeAwayWin),
	}

	reports := Aggregate([]platform.Platform{pinnacle}, preds, Options{Policy: ClosingPolicy()})
	require.Len(t, reports, 1)
	assert.InDelta(t, 0.25, *reports[0].Brier, 1e-12)
	assert.InDelta(t, 0.0, *reports[0].RawAccuracy, 1e-12, "ties are never a hit")
	assert.InDelta(t, 0.5, *reports[0].AvgPredicted, 1e-12)
}

func TestAggregate_InsufficientData(t *testing.T) {
	preds := []Prediction{binary(1, kalshi.ID, 0.6, 0.4, game.OutcomeHomeWin)}

	reports := Aggregate([]platform.Platform{pinnacle, kalshi}, preds, Options{MinSamples: 2, Policy: ClosingPolicy()})
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.True(t, r.InsufficientData, r.Platform)
		assert.Nil(t, r.Brier)
	}
	assert.Equal(t, "kalshi", reports[0].Platform)
	assert.Equal(t, 1, reports[0].Predictions)
	assert.Equal(t, 0, reports[1].Predictions)
}

func TestAggregate_OutcomeScope(t *testing.T) {
	home := game.OutcomeHomeWin
	preds := []Prediction{
		binary(1, kalshi.ID, 0.7, 0.3, game.OutcomeHomeWin),
		binary(2, kalshi.ID, 0.6, 0.4, game.OutcomeAwayWin),
	}

	reports := Aggregate([]platform.Platform{kalshi}, preds, Options{OutcomeType: &home, Policy: ClosingPolicy()})
	require.Len(t, reports, 1)
	want := (0.3*0.3 + 0.6*0.6) / 2
	assert.InDelta(t, want, *reports[0].Brier, 1e-12)
	assert.InDelta(t, 0.65, *reports[0].AvgPredicted, 1e-12)
	assert.Equal(t, "home_win", reports[0].OutcomeScope)
}

func TestBrier_ThreeWay(t *testing.T) {
	p := Prediction{
		Probabilities: map[game.OutcomeType]float64{
			game.OutcomeHomeWin: 0.5,
			game.OutcomeAwayWin: 0.3,
			game.OutcomeDraw:    0.2,
		},
		Actual: game.OutcomeDraw,
	}
	want := (0.25 + 0.09 + 0.64) / 3
	assert.InDelta(t, want, Brier(p), 1e-12)
}

func point(market int64, outcome game.OutcomeType, at time.Time, prob float64) Point {
	return Point{
		GameID:      1,
		MarketID:    market,
		PlatformID:  kalshi.ID,
		OutcomeType: outcome,
		ObservedAt:  at,
		GameStart:   start,
		Probability: prob,
		Actual:      game.OutcomeHomeWin,
	}
}

func TestSelectPredictions_Closing(t *testing.T) {
	points := []Point{
		point(5, game.OutcomeHomeWin, start.Add(-3*time.Hour), 0.40),
		point(5, game.OutcomeAwayWin, start.Add(-3*time.Hour), 0.60),
		point(5, game.OutcomeHomeWin, start.Add(-10*time.Minute), 0.55),
		point(5, game.OutcomeAwayWin, start.Add(-10*time.Minute), 0.45),
		point(5, game.OutcomeHomeWin, start.Add(time.Hour), 0.99),
		point(5, game.OutcomeAwayWin, start.Add(time.Hour), 0.01),
	}

	preds := SelectPredictions(points, ClosingPolicy())
	require.Len(t, preds, 1)
	assert.InDelta(t, 0.55, preds[0].Probabilities[game.OutcomeHomeWin], 1e-12)
	assert.InDelta(t, 0.45, preds[0].Probabilities[game.OutcomeAwayWin], 1e-12)
	assert.True(t, preds[0].ObservedAt.Equal(start.Add(-10*time.Minute)))
}

func TestSelectPredictions_ClosingNeverMixesTimestamps(t *testing.T) {
	points := []Point{
		point(5, game.OutcomeHomeWin, start.Add(-2*time.Hour), 0.52),
		point(5, game.OutcomeAwayWin, start.Add(-2*time.Hour), 0.48),
		// Later quotes that only reached one side stay unpaired.
		point(5, game.OutcomeHomeWin, start.Add(-20*time.Minute), 0.70),
		point(5, game.OutcomeAwayWin, start.Add(-5*time.Minute), 0.35),
	}

	preds := SelectPredictions(points, ClosingPolicy())
	require.Len(t, preds, 1)
	var total float64
	for _, p := range preds[0].Probabilities {
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, 0.52, preds[0].Probabilities[game.OutcomeHomeWin], 1e-12)
	assert.True(t, preds[0].ObservedAt.Equal(start.Add(-2*time.Hour)))
}

func TestSelectPredictions_BeforeOffset(t *testing.T) {
	points := []Point{
		point(5, game.OutcomeHomeWin, start.Add(-3*time.Hour), 0.40),
		point(5, game.OutcomeAwayWin, start.Add(-3*time.Hour), 0.60),
		point(5, game.OutcomeHomeWin, start.Add(-90*time.Minute), 0.48),
		point(5, game.OutcomeAwayWin, start.Add(-90*time.Minute), 0.52),
		point(5, game.OutcomeHomeWin, start.Add(-5*time.Minute), 0.55),
		point(5, game.OutcomeAwayWin, start.Add(-5*time.Minute), 0.45),
	}

	policy, err := ParsePolicy("before:2h")
	require.NoError(t, err)

	preds := SelectPredictions(points, policy)
	require.Len(t, preds, 1)
	assert.InDelta(t, 0.48, preds[0].Probabilities[game.OutcomeHomeWin], 1e-12)
}

func TestSelectPredictions_DropsIncompleteMarkets(t *testing.T) {
	points := []Point{
		point(5, game.OutcomeHomeWin, start.Add(-time.Hour), 0.55),
		point(6, game.OutcomeAwayWin, start.Add(-time.Hour), 0.45),
		point(6, game.OutcomeDraw, start.Add(-time.Hour), 0.55),
	}

	assert.Empty(t, SelectPredictions(points, ClosingPolicy()))
}

func TestSelectPredictions_OnePredictionPerPlatformGame(t *testing.T) {
	at := start.Add(-30 * time.Minute)
	points := []Point{
		point(5, game.OutcomeHomeWin, at, 0.60),
		point(5, game.OutcomeAwayWin, at, 0.40),
		point(6, game.OutcomeHomeWin, at.Add(time.Minute), 0.50),
		point(6, game.OutcomeAwayWin, at.Add(time.Minute), 0.50),
	}
	other := point(9, game.OutcomeHomeWin, at, 0.30)
	other.GameID = 2
	otherAway := point(9, game.OutcomeAwayWin, at, 0.70)
	otherAway.GameID = 2
	points = append(points, other, otherAway)

	preds := SelectPredictions(points, ClosingPolicy())
	require.Len(t, preds, 2)

	first := preds[0]
	assert.Equal(t, int64(1), first.GameID)
	assert.Equal(t, int64(5), first.MarketID)
	assert.Equal(t, 2, first.Markets)
	assert.InDelta(t, 0.55, first.Probabilities[game.OutcomeHomeWin], 1e-12)
	assert.InDelta(t, 0.45, first.Probabilities[game.OutcomeAwayWin], 1e-12)

	reports := Aggregate([]platform.Platform{kalshi}, preds, Options{Policy: ClosingPolicy()})
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].Predictions)
	assert.Equal(t, 2, reports[0].Games)
	// Home won both: 0.55 scores 0.2025 and 0.30 scores 0.49.
	want := (0.2025 + 0.49) / 2
	assert.InDelta(t, want, *reports[0].Brier, 1e-12)
}

func TestSelectPredictions_DropsMarketsWithOtherOutcomeSets(t *testing.T) {
	at := start.Add(-30 * time.Minute)
	points := []Point{
		point(5, game.OutcomeHomeWin, at, 0.60),
		point(5, game.OutcomeAwayWin, at, 0.40),
		point(6, game.OutcomeHomeWin, at, 0.50),
		point(6, game.OutcomeAwayWin, at, 0.20),
		point(6, game.OutcomeDraw, at, 0.30),
	}

	preds := SelectPredictions(points, ClosingPolicy())
	require.Len(t, preds, 1)
	assert.Equal(t, 1, preds[0].Markets)
	assert.Len(t, preds[0].Probabilities, 2)
	assert.InDelta(t, 0.60, preds[0].Probabilities[game.OutcomeHomeWin], 1e-12)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyClosing, p.Kind)

	p, err = ParsePolicy("BEFORE:30m")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, p.Offset)
	assert.Equal(t, "before:30m0s", p.String())

	for _, bad := range []string{"opening", "before:", "before:-1h", "before:abc"} {
		_, err := ParsePolicy(bad)
		assert.Error(t, err, bad)
	}
}

func TestFavorite(t *testing.T) {
	best, ok := Favorite(binary(1, kalshi.ID, 0.62, 0.38, game.OutcomeHomeWin))
	require.True(t, ok)
	assert.Equal(t, game.OutcomeHomeWin, best)

	_, ok = Favorite(binary(1, kalshi.ID, 0.5, 0.5, game.OutcomeHomeWin))
	assert.False(t, ok, "a tie has no favorite")

	_, ok = Favorite(Prediction{})
	assert.False(t, ok)
}
