package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/riskibarqy/odds-ledger/internal/domain/accuracy"
	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
	"github.com/riskibarqy/odds-ledger/internal/platform/cache"
)

const accuracyCachePrefix = "accuracy:"

type AccuracyQuery struct {
	Platform    string
	OutcomeType string
	Window      string
}

type AccuracyService struct {
	platformRepo platform.Repository
	accuracyRepo accuracy.Repository
	store        cache.JSONStore
	flight       singleflight.Group
	minSamples   int
}

// NewAccuracyService builds the scorer. store may be nil to disable caching.
func NewAccuracyService(
	platformRepo platform.Repository,
	accuracyRepo accuracy.Repository,
	store cache.JSONStore,
	minSamples int,
) *AccuracyService {
	if minSamples < 1 {
		minSamples = 1
	}
	return &AccuracyService{
		platformRepo: platformRepo,
		accuracyRepo: accuracyRepo,
		store:        store,
		minSamples:   minSamples,
	}
}

// Score reports the Brier score of every platform, or of the one named in
// the query, under the requested window policy.
func (s *AccuracyService) Score(ctx context.Context, q AccuracyQuery) ([]accuracy.Report, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AccuracyService.Score")
	defer span.End()

	policy, err := accuracy.ParsePolicy(q.Window)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var outcomeType *game.OutcomeType
	if strings.TrimSpace(q.OutcomeType) != "" && strings.ToLower(strings.TrimSpace(q.OutcomeType)) != accuracy.ScopeAll {
		t, err := game.ParseOutcomeType(q.OutcomeType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		outcomeType = &t
	}

	platformName := platform.NormalizeName(q.Platform)
	key := accuracyCacheKey(platformName, outcomeType, policy, s.minSamples)

	return cache.LoadJSON(ctx, s.store, &s.flight, key, func(ctx context.Context) ([]accuracy.Report, error) {
		return s.score(ctx, platformName, outcomeType, policy)
	})
}

func (s *AccuracyService) score(ctx context.Context, platformName string, outcomeType *game.OutcomeType, policy accuracy.Policy) ([]accuracy.Report, error) {
	platforms, err := s.platformRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}

	var query accuracy.Query
	if platformName != "" {
		selected := make([]platform.Platform, 0, 1)
		for _, p := range platforms {
			if p.Name == platformName {
				selected = append(selected, p)
			}
		}
		if len(selected) == 0 {
			return nil, fmt.Errorf("%w: platform %q", ErrNotFound, platformName)
		}
		if len(selected) == 1 {
			query.PlatformID = selected[0].ID
		}
		platforms = selected
	}

	points, err := s.accuracyRepo.ListPoints(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accuracy points: %w", err)
	}

	predictions := accuracy.SelectPredictions(points, policy)
	return accuracy.Aggregate(platforms, predictions, accuracy.Options{
		OutcomeType: outcomeType,
		MinSamples:  s.minSamples,
		Policy:      policy,
	}), nil
}

func (s *AccuracyService) InvalidateAccuracy(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Invalidate(ctx, accuracyCachePrefix)
}

func accuracyCacheKey(platformName string, outcomeType *game.OutcomeType, policy accuracy.Policy, minSamples int) string {
	scope := accuracy.ScopeAll
	if outcomeType != nil {
		scope = string(*outcomeType)
	}
	if platformName == "" {
		platformName = "*"
	}
	return accuracyCachePrefix + platformName + ":" + scope + ":" + policy.String() + ":" + strconv.Itoa(minSamples)
}
