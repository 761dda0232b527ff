package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/odds-ledger/internal/domain/team"
)

// TeamMatchResult is a dry run of the matcher. Matchup text ("Red Sox @
// Yankees") fills Home and Away, anything else fills Team.
type TeamMatchResult struct {
	Query   string
	Sport   string
	Matchup bool
	Team    *team.Match
	Home    *team.Match
	Away    *team.Match
}

type TeamService struct {
	matcher  *team.Matcher
	teamRepo team.Repository
}

func NewTeamService(matcher *team.Matcher, teamRepo team.Repository) *TeamService {
	return &TeamService{
		matcher:  matcher,
		teamRepo: teamRepo,
	}
}

func (s *TeamService) List(ctx context.Context, sport string) ([]team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.List")
	defer span.End()

	items, err := s.teamRepo.ListBySport(ctx, team.NormalizeSport(sport))
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return items, nil
}

func (s *TeamService) Get(ctx context.Context, teamID string) (team.Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return team.Team{}, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	item, exists, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return team.Team{}, fmt.Errorf("get team by id: %w", err)
	}
	if !exists {
		return team.Team{}, fmt.Errorf("%w: team=%s", ErrNotFound, teamID)
	}
	return item, nil
}

func (s *TeamService) Match(ctx context.Context, sport, query string) (TeamMatchResult, error) {
	_, span := startUsecaseSpan(ctx, "usecase.TeamService.Match")
	defer span.End()

	sport = team.NormalizeSport(sport)
	query = strings.TrimSpace(query)
	if sport == "" || query == "" {
		return TeamMatchResult{}, fmt.Errorf("%w: sport and q are required", ErrInvalidInput)
	}

	result := TeamMatchResult{Query: query, Sport: sport}
	if away, home, ok := team.SplitMatchup(query); ok {
		result.Matchup = true
		homeMatch, err := s.matcher.MatchDetail(home, sport)
		if err != nil {
			return TeamMatchResult{}, fmt.Errorf("home team: %w", err)
		}
		awayMatch, err := s.matcher.MatchDetail(away, sport)
		if err != nil {
			return TeamMatchResult{}, fmt.Errorf("away team: %w", err)
		}
		result.Home, result.Away = &homeMatch, &awayMatch
		return result, nil
	}

	match, err := s.matcher.MatchDetail(query, sport)
	if err != nil {
		return TeamMatchResult{}, err
	}
	result.Team = &match
	return result, nil
}

// SyncReference writes the embedded directory to the team table so the
// relational layout carries the same teams the matcher uses.
func (s *TeamService) SyncReference(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.SyncReference")
	defer span.End()

	teams := s.matcher.Directory().All()
	if len(teams) == 0 {
		return 0, nil
	}
	if err := s.teamRepo.Upsert(ctx, teams); err != nil {
		return 0, fmt.Errorf("upsert reference teams: %w", err)
	}
	return len(teams), nil
}
