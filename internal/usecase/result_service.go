package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
)

type RecordResultInput struct {
	GameID        int64
	Status        string
	ActualOutcome string
	HomeScore     *int
	AwayScore     *int
}

// ResultService is the outcome recorder: it closes games with their final
// result so that accuracy scoring can use them.
type ResultService struct {
	gameRepo    game.Repository
	invalidator CacheInvalidator
	logger      *logging.Logger
}

func NewResultService(gameRepo game.Repository, invalidator CacheInvalidator, logger *logging.Logger) *ResultService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ResultService{
		gameRepo:    gameRepo,
		invalidator: invalidator,
		logger:      logger,
	}
}

func (s *ResultService) RecordResult(ctx context.Context, input RecordResultInput) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResultService.RecordResult")
	defer span.End()

	if input.GameID <= 0 {
		return game.Game{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	result, err := buildResult(input)
	if err != nil {
		return game.Game{}, err
	}

	updated, err := s.gameRepo.RecordResult(ctx, input.GameID, result)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			return game.Game{}, fmt.Errorf("%w: game id=%d", ErrNotFound, input.GameID)
		}
		return game.Game{}, fmt.Errorf("record game result: %w", err)
	}

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateAccuracy(ctx); err != nil {
			s.logger.WarnContext(ctx, "invalidate accuracy cache failed", "game_id", updated.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "game result recorded",
		"game_id", updated.ID,
		"status", updated.Status,
		"actual_outcome", result.ActualOutcome,
	)
	return updated, nil
}

func buildResult(input RecordResultInput) (game.Result, error) {
	status := game.StatusCompleted
	if strings.TrimSpace(input.Status) != "" {
		parsed, err := game.ParseStatus(input.Status)
		if err != nil {
			return game.Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		status = parsed
	}
	if status == game.StatusScheduled {
		return game.Result{}, fmt.Errorf("%w: a result must complete or cancel the game", ErrInvalidInput)
	}

	result := game.Result{
		Status:    status,
		HomeScore: input.HomeScore,
		AwayScore: input.AwayScore,
	}
	switch {
	case strings.TrimSpace(input.ActualOutcome) != "":
		outcome, err := game.ParseOutcomeType(input.ActualOutcome)
		if err != nil {
			return game.Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		result.ActualOutcome = &outcome
	case status == game.StatusCompleted && input.HomeScore != nil && input.AwayScore != nil:
		outcome := game.OutcomeFromScores(*input.HomeScore, *input.AwayScore)
		result.ActualOutcome = &outcome
	}

	if err := result.Validate(); err != nil {
		return game.Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return result, nil
}
