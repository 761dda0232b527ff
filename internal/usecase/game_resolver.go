package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/team"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
)

const maxGameCreateAttempts = 3

type ResolveInput struct {
	Sport     string
	RawHome   string
	RawAway   string
	StartTime time.Time
	Season    string
}

type Resolution struct {
	Game      game.Game
	Home      team.Team
	Away      team.Team
	Created   bool
	Selection game.Selection
}

// GameResolver finds or creates the canonical game behind a quote.
type GameResolver struct {
	matcher  *team.Matcher
	gameRepo game.Repository
	window   game.MatchWindow
	logger   *logging.Logger
}

func NewGameResolver(matcher *team.Matcher, gameRepo game.Repository, window game.MatchWindow, logger *logging.Logger) *GameResolver {
	if window.Tolerance <= 0 || window.Ceiling < window.Tolerance {
		window = game.DefaultMatchWindow()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GameResolver{
		matcher:  matcher,
		gameRepo: gameRepo,
		window:   window,
		logger:   logger,
	}
}

func (r *GameResolver) Matcher() *team.Matcher {
	return r.matcher
}

// ResolveTeams maps the raw home and away strings to directory teams.
func (r *GameResolver) ResolveTeams(sport, rawHome, rawAway string) (team.Team, team.Team, error) {
	home, err := r.matcher.Match(rawHome, sport)
	if err != nil {
		return team.Team{}, team.Team{}, fmt.Errorf("resolve home team: %w", err)
	}
	away, err := r.matcher.Match(rawAway, sport)
	if err != nil {
		return team.Team{}, team.Team{}, fmt.Errorf("resolve away team: %w", err)
	}
	if home.ID == away.ID {
		return team.Team{}, team.Team{}, fmt.Errorf("%w: home and away resolve to the same team %s", ErrInvalidInput, home.ID)
	}
	return home, away, nil
}

func (r *GameResolver) Resolve(ctx context.Context, input ResolveInput) (Resolution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameResolver.Resolve")
	defer span.End()

	if input.StartTime.IsZero() {
		return Resolution{}, fmt.Errorf("%w: start time is required", ErrInvalidInput)
	}
	sport := team.NormalizeSport(input.Sport)
	if sport == "" {
		return Resolution{}, fmt.Errorf("%w: sport is required", ErrInvalidInput)
	}

	home, away, err := r.ResolveTeams(sport, input.RawHome, input.RawAway)
	if err != nil {
		return Resolution{}, err
	}
	start := input.StartTime.UTC().Truncate(time.Second)

	for attempt := 1; attempt <= maxGameCreateAttempts; attempt++ {
		from, to := r.window.Bounds(start)
		candidates, err := r.gameRepo.ListCandidates(ctx, sport, home.ID, away.ID, from, to)
		if err != nil {
			return Resolution{}, fmt.Errorf("list candidate games: %w", err)
		}

		if sel, ok := r.window.Select(candidates, start); ok {
			r.logSelection(ctx, sel, home, away, start)
			return Resolution{Game: sel.Game, Home: home, Away: away, Selection: sel}, nil
		}

		created, err := r.gameRepo.Create(ctx, game.New(home, away, start, strings.TrimSpace(input.Season)))
		if err == nil {
			r.logger.InfoContext(ctx, "game created",
				"game_id", created.ID,
				"sport", sport,
				"home_team_id", home.ID,
				"away_team_id", away.ID,
				"start_time", created.StartTime,
			)
			return Resolution{Game: created, Home: home, Away: away, Created: true}, nil
		}
		if !errors.Is(err, game.ErrDuplicateGame) {
			return Resolution{}, fmt.Errorf("create game: %w", err)
		}

		r.logger.DebugContext(ctx, "concurrent game insert, retrying lookup",
			"attempt", attempt,
			"home_team_id", home.ID,
			"away_team_id", away.ID,
			"start_time", start,
		)
	}

	return Resolution{}, fmt.Errorf("%w: game %s vs %s at %s kept conflicting", ErrConflict, away.ID, home.ID, start.Format(time.RFC3339))
}

func (r *GameResolver) logSelection(ctx context.Context, sel game.Selection, home, away team.Team, start time.Time) {
	if sel.Ambiguous {
		r.logger.WarnContext(ctx, "ambiguous_time_window",
			"game_id", sel.Game.ID,
			"tied_game_ids", sel.Tied,
			"home_team_id", home.ID,
			"away_team_id", away.ID,
			"start_time", start,
			"delta", sel.Delta,
		)
		return
	}
	if sel.Skewed {
		r.logger.InfoContext(ctx, "game matched outside tolerance",
			"game_id", sel.Game.ID,
			"start_time", start,
			"stored_start_time", sel.Game.StartTime,
			"delta", sel.Delta,
		)
	}
}
