package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	"github.com/riskibarqy/odds-ledger/internal/domain/team"
)

const (
	defaultGameListLimit = 100
	maxGameListLimit     = 1000
)

type GameListInput struct {
	Sport  string
	Status string
	From   time.Time
	To     time.Time
	Limit  int
}

type GameTimeline struct {
	Game    game.Game
	Entries []market.TimelineEntry
}

type GameService struct {
	gameRepo   game.Repository
	marketRepo market.Repository
}

func NewGameService(gameRepo game.Repository, marketRepo market.Repository) *GameService {
	return &GameService{
		gameRepo:   gameRepo,
		marketRepo: marketRepo,
	}
}

func (s *GameService) List(ctx context.Context, input GameListInput) ([]game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameService.List")
	defer span.End()

	filter := game.ListFilter{
		Sport: team.NormalizeSport(input.Sport),
		From:  input.From,
		To:    input.To,
		Limit: input.Limit,
	}
	if strings.TrimSpace(input.Status) != "" {
		status, err := game.ParseStatus(input.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		filter.Status = status
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: to must not be before from", ErrInvalidInput)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultGameListLimit
	case filter.Limit > maxGameListLimit:
		filter.Limit = maxGameListLimit
	}

	items, err := s.gameRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return items, nil
}

func (s *GameService) Get(ctx context.Context, gameID int64) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameService.Get")
	defer span.End()

	if gameID <= 0 {
		return game.Game{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	item, exists, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return game.Game{}, fmt.Errorf("get game by id: %w", err)
	}
	if !exists {
		return game.Game{}, fmt.Errorf("%w: game id=%d", ErrNotFound, gameID)
	}
	return item, nil
}

// Timeline lists every snapshot of every platform for one game in time order.
func (s *GameService) Timeline(ctx context.Context, gameID int64) (GameTimeline, error) {
	item, err := s.Get(ctx, gameID)
	if err != nil {
		return GameTimeline{}, err
	}

	entries, err := s.marketRepo.ListByGame(ctx, gameID)
	if err != nil {
		return GameTimeline{}, fmt.Errorf("list game snapshots: %w", err)
	}
	return GameTimeline{Game: item, Entries: entries}, nil
}
