package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/team"
	gamemock "github.com/riskibarqy/odds-ledger/internal/mocks/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
)

func TestGameResolver_Resolve_BindsWithinTolerance(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	first, err := env.resolver.Resolve(ctx, ResolveInput{Sport: "MLB", RawHome: "Yankees", RawAway: "Red Sox", StartTime: firstPitch})
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, "mlb-nyy", first.Game.HomeTeamID)
	require.Equal(t, "mlb-bos", first.Game.AwayTeamID)
	require.Equal(t, game.StatusScheduled, first.Game.Status)
	require.Equal(t, "2025", first.Game.Season)
	require.Equal(t, "America/New_York", first.Game.Timezone)
	require.Equal(t, "2025-07-04", first.Game.LocalDate)

	second, err := env.resolver.Resolve(ctx, ResolveInput{Sport: "mlb", RawHome: "NYY", RawAway: "BOS", StartTime: firstPitch.Add(5 * time.Minute)})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Game.ID, second.Game.ID)
	require.False(t, second.Selection.Skewed)

	nextDay, err := env.resolver.Resolve(ctx, ResolveInput{Sport: "mlb", RawHome: "Yankees", RawAway: "Red Sox", StartTime: firstPitch.Add(26 * time.Hour)})
	require.NoError(t, err)
	require.True(t, nextDay.Created)
	require.NotEqual(t, first.Game.ID, nextDay.Game.ID)
}

func TestGameResolver_Resolve_DoubleheaderCreatesTwoGames(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()
	opener := time.Date(2025, 8, 2, 17, 5, 0, 0, time.UTC)

	game1, err := env.resolver.Resolve(ctx, ResolveInput{Sport: "mlb", RawHome: "Cubs", RawAway: "Cardinals", StartTime: opener})
	require.NoError(t, err)
	game2, err := env.resolver.Resolve(ctx, ResolveInput{Sport: "mlb", RawHome: "Cubs", RawAway: "Cardinals", StartTime: opener.Add(4 * time.Hour)})
	require.NoError(t, err)

	require.True(t, game2.Created)
	require.NotEqual(t, game1.Game.ID, game2.Game.ID)
	require.Equal(t, game1.Game.LocalDate, game2.Game.LocalDate)
}

func TestGameResolver_Resolve_SkewedStartBindsToClosest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	created, err := env.resolver.Resolve(ctx, ResolveInput{Sport: "mlb", RawHome: "Dodgers", RawAway: "Giants", StartTime: firstPitch})
	require.NoError(t, err)

	skewed, err := env.resolver.Resolve(ctx, ResolveInput{Sport: "mlb", RawHome: "Los Angeles Dodgers", RawAway: "SF Giants", StartTime: firstPitch.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Equal(t, created.Game.ID, skewed.Game.ID)
	require.True(t, skewed.Selection.Skewed)
}

func TestGameResolver_Resolve_RejectsBadTeams(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := t.Context()

	_, err := env.resolver.Resolve(ctx, ResolveInput{Sport: "mlb", RawHome: "Yankees", RawAway: "NYY", StartTime: firstPitch})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.resolver.Resolve(ctx, ResolveInput{Sport: "mlb", RawHome: "New York", RawAway: "Red Sox", StartTime: firstPitch})
	require.ErrorIs(t, err, team.ErrAmbiguousTeamMatch)

	_, err = env.resolver.Resolve(ctx, ResolveInput{Sport: "mlb", RawHome: "Lakers", RawAway: "Red Sox", StartTime: firstPitch})
	require.ErrorIs(t, err, team.ErrNoTeamMatch)
}

func TestGameResolver_Resolve_RetriesAfterConcurrentInsert(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	repo := gamemock.NewRepository(t)
	resolver := NewGameResolver(env.matcher, repo, game.DefaultMatchWindow(), logging.NewNop())

	existing := game.Game{ID: 42, Sport: "mlb", HomeTeamID: "mlb-nyy", AwayTeamID: "mlb-bos", StartTime: firstPitch}
	anyCtx := mock.MatchedBy(func(context.Context) bool { return true })

	repo.On("ListCandidates", anyCtx, "mlb", "mlb-nyy", "mlb-bos", mock.Anything, mock.Anything).
		Return([]game.Game{}, nil).
		Once()
	repo.On("Create", anyCtx, mock.AnythingOfType("game.Game")).
		Return(game.Game{}, fmt.Errorf("%w: conflicts with game 42", game.ErrDuplicateGame)).
		Once()
	repo.On("ListCandidates", anyCtx, "mlb", "mlb-nyy", "mlb-bos", mock.Anything, mock.Anything).
		Return([]game.Game{existing}, nil).
		Once()

	got, err := resolver.Resolve(t.Context(), ResolveInput{Sport: "mlb", RawHome: "Yankees", RawAway: "Red Sox", StartTime: firstPitch.Add(time.Minute)})
	require.NoError(t, err)
	require.False(t, got.Created)
	require.Equal(t, int64(42), got.Game.ID)
}

func TestGameResolver_Resolve_GivesUpAfterRepeatedConflicts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	repo := gamemock.NewRepository(t)
	resolver := NewGameResolver(env.matcher, repo, game.DefaultMatchWindow(), logging.NewNop())

	repo.On("ListCandidates", mock.Anything, "mlb", "mlb-nyy", "mlb-bos", mock.Anything, mock.Anything).
		Return(nil, nil).
		Times(maxGameCreateAttempts)
	repo.On("Create", mock.Anything, mock.AnythingOfType("game.Game")).
		Return(game.Game{}, game.ErrDuplicateGame).
		Times(maxGameCreateAttempts)

	_, err := resolver.Resolve(t.Context(), ResolveInput{Sport: "mlb", RawHome: "Yankees", RawAway: "Red Sox", StartTime: firstPitch})
	require.ErrorIs(t, err, ErrConflict)
}

func TestGameResolver_Resolve_PropagatesRepositoryError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	repo := gamemock.NewRepository(t)
	resolver := NewGameResolver(env.matcher, repo, game.DefaultMatchWindow(), logging.NewNop())
	boom := errors.New("connection reset")

	repo.On("ListCandidates", mock.Anything, "mlb", "mlb-nyy", "mlb-bos", mock.Anything, mock.Anything).
		Return(nil, boom).
		Once()

	_, err := resolver.Resolve(t.Context(), ResolveInput{Sport: "mlb", RawHome: "Yankees", RawAway: "Red Sox", StartTime: firstPitch})
	require.ErrorIs(t, err, boom)
}
