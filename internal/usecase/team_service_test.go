package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/odds-ledger/internal/domain/team"
	teammock "github.com/riskibarqy/odds-ledger/internal/mocks/domain/team"
)

func TestTeamService_Match(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	svc := NewTeamService(env.matcher, teammock.NewRepository(t))

	got, err := svc.Match(t.Context(), "MLB", "Red Sox @ Yankees")
	require.NoError(t, err)
	require.True(t, got.Matchup)
	require.Equal(t, "mlb-nyy", got.Home.Team.ID)
	require.Equal(t, "mlb-bos", got.Away.Team.ID)

	got, err = svc.Match(t.Context(), "mlb", "Chicago White Sox")
	require.NoError(t, err)
	require.False(t, got.Matchup)
	require.Equal(t, "mlb-cws", got.Team.Team.ID)

	_, err = svc.Match(t.Context(), "mlb", "Chicago")
	var ambiguous *team.AmbiguousMatchError
	require.True(t, errors.As(err, &ambiguous))
	require.Len(t, ambiguous.Candidates, 2)

	_, err = svc.Match(t.Context(), "", "Yankees")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestTeamService_SyncReferenceUsingMockery(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	repo := teammock.NewRepository(t)
	svc := NewTeamService(env.matcher, repo)

	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(items []team.Team) bool { return len(items) == 30 })).
		Return(nil).
		Once()

	n, err := svc.SyncReference(t.Context())
	require.NoError(t, err)
	require.Equal(t, 30, n)
}

func TestTeamService_GetUsingMockery(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	repo := teammock.NewRepository(t)
	svc := NewTeamService(env.matcher, repo)

	repo.On("GetByID", mock.Anything, "mlb-zzz").Return(team.Team{}, false, nil).Once()
	_, err := svc.Get(t.Context(), "mlb-zzz")
	require.ErrorIs(t, err, ErrNotFound)

	repo.On("ListBySport", mock.Anything, "mlb").Return([]team.Team{{ID: "mlb-bos"}}, nil).Once()
	items, err := svc.List(t.Context(), " MLB ")
	require.NoError(t, err)
	require.Len(t, items, 1)
}
