package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	"github.com/riskibarqy/odds-ledger/internal/domain/odds"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
)

type ReprocessResult struct {
	Groups       int `json:"groups"`
	Resolved     int `json:"resolved"`
	StillPending int `json:"still_pending"`
	Failed       int `json:"failed"`
	WorkerCount  int `json:"worker_count"`
}

// NormalizationService re-runs devig for observations whose solver did not
// converge at ingest time.
type NormalizationService struct {
	marketRepo  market.Repository
	invalidator CacheInvalidator
	workers     int
	logger      *logging.Logger
}

func NewNormalizationService(marketRepo market.Repository, invalidator CacheInvalidator, workers int, logger *logging.Logger) *NormalizationService {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &NormalizationService{
		marketRepo:  marketRepo,
		invalidator: invalidator,
		workers:     workers,
		logger:      logger,
	}
}

type observationKey struct {
	marketID   int64
	observedAt time.Time
}

func (s *NormalizationService) ReprocessPending(ctx context.Context, limit int) (ReprocessResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NormalizationService.ReprocessPending")
	defer span.End()

	if limit <= 0 {
		limit = 1000
	}
	pending, err := s.marketRepo.ListPending(ctx, limit)
	if err != nil {
		return ReprocessResult{}, fmt.Errorf("list pending snapshots: %w", err)
	}

	seen := make(map[observationKey]struct{}, len(pending))
	groups := make([]observationKey, 0, len(pending))
	for _, snap := range pending {
		key := observationKey{marketID: snap.MarketID, observedAt: snap.ObservedAt.UTC()}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		groups = append(groups, key)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].marketID != groups[j].marketID {
			return groups[i].marketID < groups[j].marketID
		}
		return groups[i].observedAt.Before(groups[j].observedAt)
	})

	workerCount := s.workers
	if workerCount > len(groups) {
		workerCount = len(groups)
	}
	result := ReprocessResult{Groups: len(groups), WorkerCount: workerCount}
	if len(groups) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return ReprocessResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		resolved atomic.Int32
		pendingN atomic.Int32
		failed   atomic.Int32
		workers  sync.WaitGroup
	)
	for _, key := range groups {
		key := key
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			switch status, err := s.reprocess(ctx, key); {
			case err != nil:
				failed.Add(1)
				s.logger.WarnContext(ctx, "devig reprocess failed",
					"market_id", key.marketID,
					"observed_at", key.observedAt,
					"error", err,
				)
			case status == market.DevigOK:
				resolved.Add(1)
			case status == market.DevigPending:
				pendingN.Add(1)
			default:
				failed.Add(1)
			}
		}); err != nil {
			workers.Done()
			return ReprocessResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	workers.Wait()

	result.Resolved = int(resolved.Load())
	result.StillPending = int(pendingN.Load())
	result.Failed = int(failed.Load())

	if result.Resolved > 0 && s.invalidator != nil {
		if err := s.invalidator.InvalidateAccuracy(ctx); err != nil {
			s.logger.WarnContext(ctx, "invalidate accuracy cache failed", "error", err)
		}
	}

	s.logger.InfoContext(ctx, "devig reprocess finished",
		"groups", result.Groups,
		"resolved", result.Resolved,
		"still_pending", result.StillPending,
		"failed", result.Failed,
	)
	return result, nil
}

// reprocess devigs the full outcome set of one market observation.
func (s *NormalizationService) reprocess(ctx context.Context, key observationKey) (market.DevigStatus, error) {
	snapshots, err := s.marketRepo.ListAt(ctx, key.marketID, key.observedAt)
	if err != nil {
		return "", fmt.Errorf("list snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return "", fmt.Errorf("%w: no snapshots for market %d", ErrNotFound, key.marketID)
	}

	devigErr := market.ApplyDevig(snapshots)
	if devigErr != nil && !errors.Is(devigErr, odds.ErrDevigConvergence) {
		s.logger.WarnContext(ctx, "devig rejected on reprocess", "market_id", key.marketID, "error", devigErr)
	}
	if err := s.marketRepo.UpdateDevig(ctx, snapshots); err != nil {
		return "", fmt.Errorf("update devig: %w", err)
	}
	return snapshots[0].DevigStatus, nil
}
