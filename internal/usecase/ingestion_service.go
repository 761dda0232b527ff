package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	"github.com/riskibarqy/odds-ledger/internal/domain/odds"
	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
	"github.com/riskibarqy/odds-ledger/internal/domain/team"
	"github.com/riskibarqy/odds-ledger/internal/platform/id"
	"github.com/riskibarqy/odds-ledger/internal/platform/logging"
)

type IngestStatus string

const (
	IngestStatusStored  IngestStatus = "stored"
	IngestStatusPartial IngestStatus = "partial"
	IngestStatusSkipped IngestStatus = "skipped"
	IngestStatusFailed  IngestStatus = "failed"
)

// QuoteOutcome is one priced side of a quote. Exactly one of DecimalOdds,
// AmericanOdds or Price is set. Type may be empty when Label names a team.
type QuoteOutcome struct {
	Type         string   `json:"outcome_type"`
	Label        string   `json:"label"`
	DecimalOdds  *float64 `json:"decimal_odds"`
	AmericanOdds *float64 `json:"american_odds"`
	Price        *float64 `json:"price"`
}

// Quote is one platform observation of one market, already translated out
// of the vendor format.
type Quote struct {
	Platform       string         `json:"platform"`
	PlatformType   string         `json:"platform_type"`
	Region         string         `json:"region"`
	NativeMarketID string         `json:"native_market_id"`
	MarketName     string         `json:"market_name"`
	Identifier     string         `json:"identifier"`
	Sport          string         `json:"sport"`
	RawHome        string         `json:"raw_home"`
	RawAway        string         `json:"raw_away"`
	Title          string         `json:"title"`
	StartTime      time.Time      `json:"start_time"`
	MarketType     string         `json:"market_type"`
	ObservedAt     time.Time      `json:"observed_at"`
	Season         string         `json:"season"`
	Outcomes       []QuoteOutcome `json:"outcomes"`
}

type IngestResult struct {
	Platform       string       `json:"platform"`
	NativeMarketID string       `json:"native_market_id"`
	Status         IngestStatus `json:"status"`
	GameID         int64        `json:"game_id,omitempty"`
	GameCreated    bool         `json:"game_created,omitempty"`
	MarketID       int64        `json:"market_id,omitempty"`
	Inserted       int          `json:"inserted"`
	Duplicates     int          `json:"duplicates"`
	DevigStatus    string       `json:"devig_status,omitempty"`
	Message        string       `json:"message,omitempty"`
}

type BatchResult struct {
	RunID       string         `json:"run_id"`
	Total       int            `json:"total"`
	Stored      int            `json:"stored"`
	Partial     int            `json:"partial"`
	Skipped     int            `json:"skipped"`
	Failed      int            `json:"failed"`
	Inserted    int            `json:"inserted"`
	Duplicates  int            `json:"duplicates"`
	WorkerCount int            `json:"worker_count"`
	Platforms   int            `json:"platforms"`
	Items       []IngestResult `json:"items"`
}

type IngestionConfig struct {
	Workers  int
	MaxBatch int
}

// CacheInvalidator drops derived read models after writes that change them.
type CacheInvalidator interface {
	InvalidateAccuracy(ctx context.Context) error
}

type IngestionService struct {
	resolver     *GameResolver
	platformRepo platform.Repository
	marketRepo   market.Repository
	ids          id.Generator
	invalidator  CacheInvalidator
	cfg          IngestionConfig
	logger       *logging.Logger
}

func NewIngestionService(
	resolver *GameResolver,
	platformRepo platform.Repository,
	marketRepo market.Repository,
	ids id.Generator,
	invalidator CacheInvalidator,
	cfg IngestionConfig,
	logger *logging.Logger,
) *IngestionService {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 500
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		resolver:     resolver,
		platformRepo: platformRepo,
		marketRepo:   marketRepo,
		ids:          ids,
		invalidator:  invalidator,
		cfg:          cfg,
		logger:       logger,
	}
}

// Ingest stores one quote. Quotes that cannot be bound to a game or carry
// no usable price come back as skipped together with the cause; partial
// results are returned without error.
func (s *IngestionService) Ingest(ctx context.Context, q Quote) (IngestResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Ingest")
	defer span.End()

	result := IngestResult{
		Platform:       platform.NormalizeName(q.Platform),
		NativeMarketID: strings.TrimSpace(q.NativeMarketID),
	}

	res, err := s.ingest(ctx, q, &result)
	if err != nil {
		result.Status = classifyIngestError(err)
		result.Message = err.Error()
		s.logger.WarnContext(ctx, "quote not stored",
			"platform", q.Platform,
			"native_market_id", q.NativeMarketID,
			"raw_home", q.RawHome,
			"raw_away", q.RawAway,
			"title", q.Title,
			"status", result.Status,
			"error", err,
		)
		return result, err
	}
	return res, nil
}

func (s *IngestionService) ingest(ctx context.Context, q Quote, result *IngestResult) (IngestResult, error) {
	mt, err := validateQuote(&q)
	if err != nil {
		return *result, err
	}

	resolved, err := s.resolver.Resolve(ctx, ResolveInput{
		Sport:     q.Sport,
		RawHome:   q.RawHome,
		RawAway:   q.RawAway,
		StartTime: q.StartTime,
		Season:    q.Season,
	})
	if err != nil {
		return *result, err
	}
	result.GameID = resolved.Game.ID
	result.GameCreated = resolved.Created

	prices, err := s.outcomePrices(q, mt, resolved.Home, resolved.Away)
	if err != nil {
		return *result, err
	}

	p, err := s.platformFor(ctx, q)
	if err != nil {
		return *result, err
	}

	m, err := s.marketRepo.FindOrCreateMarket(ctx, market.Market{
		GameID:     resolved.Game.ID,
		PlatformID: p.ID,
		NativeID:   q.NativeMarketID,
		Type:       mt,
		Name:       strings.TrimSpace(q.MarketName),
		Identifier: strings.TrimSpace(q.Identifier),
	})
	if err != nil {
		return *result, fmt.Errorf("find or create market: %w", err)
	}
	if m.GameID != resolved.Game.ID {
		return *result, fmt.Errorf("%w: market %s is bound to game %d, quote resolved to game %d", ErrConflict, m.NativeID, m.GameID, resolved.Game.ID)
	}
	result.MarketID = m.ID

	wanted := make([]market.Outcome, 0, len(prices))
	for _, price := range prices {
		wanted = append(wanted, price.Outcome)
	}
	outcomes, err := s.marketRepo.FindOrCreateOutcomes(ctx, m.ID, wanted)
	if err != nil {
		return *result, fmt.Errorf("find or create outcomes: %w", err)
	}
	byType := make(map[game.OutcomeType]market.Outcome, len(outcomes))
	for _, o := range outcomes {
		byType[o.Type] = o
	}
	for i := range prices {
		prices[i].Outcome = byType[prices[i].Outcome.Type]
	}

	snapshots, rejected := market.BuildSnapshots(prices, q.ObservedAt)
	for _, r := range rejected {
		s.logger.WarnContext(ctx, "outcome rejected",
			"platform", p.Name,
			"native_market_id", m.NativeID,
			"outcome_type", r.Outcome.Type,
			"error", r.Err,
		)
	}
	if len(snapshots) == 0 {
		return *result, fmt.Errorf("%w: no valid prices in quote: %v", ErrInvalidInput, rejected[0].Err)
	}

	saved, err := s.marketRepo.SaveSnapshots(ctx, resolved.Game.StartTime, snapshots)
	if err != nil {
		return *result, fmt.Errorf("save snapshots: %w", err)
	}
	result.Inserted = saved.Inserted
	result.Duplicates = saved.Duplicates
	result.Status = IngestStatusStored

	var devigErr error
	if len(saved.Observations) > 0 {
		obs := saved.Observations[0]
		result.DevigStatus = string(obs.Status)
		devigErr = obs.Err
	}

	if devigErr != nil || len(rejected) > 0 {
		result.Status = IngestStatusPartial
		switch {
		case devigErr != nil:
			result.Message = devigErr.Error()
		default:
			result.Message = rejected[0].Err.Error()
		}
		s.logger.WarnContext(ctx, "quote stored without devig",
			"platform", p.Name,
			"native_market_id", m.NativeID,
			"devig_status", result.DevigStatus,
			"rejected", len(rejected),
			"error", devigErr,
		)
	}

	if saved.Inserted > 0 && resolved.Game.Scoreable() && s.invalidator != nil {
		if err := s.invalidator.InvalidateAccuracy(ctx); err != nil {
			s.logger.WarnContext(ctx, "invalidate accuracy cache failed", "error", err)
		}
	}

	s.logger.DebugContext(ctx, "quote ingested",
		"platform", p.Name,
		"native_market_id", m.NativeID,
		"game_id", resolved.Game.ID,
		"inserted", saved.Inserted,
		"duplicates", saved.Duplicates,
	)
	return *result, nil
}

func (s *IngestionService) platformFor(ctx context.Context, q Quote) (platform.Platform, error) {
	p := platform.Platform{Name: q.Platform, Region: q.Region}
	if strings.TrimSpace(q.PlatformType) != "" {
		t, err := platform.ParseType(q.PlatformType)
		if err != nil {
			return platform.Platform{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		p.Type = t
	}
	out, err := s.platformRepo.FindOrCreate(ctx, p)
	if err != nil {
		return platform.Platform{}, fmt.Errorf("find or create platform: %w", err)
	}
	return out, nil
}

func (s *IngestionService) outcomePrices(q Quote, mt market.Type, home, away team.Team) ([]market.Price, error) {
	prices := make([]market.Price, 0, len(q.Outcomes))
	seen := make(map[game.OutcomeType]struct{}, len(q.Outcomes))
	for i, o := range q.Outcomes {
		var (
			ot  game.OutcomeType
			err error
		)
		if strings.TrimSpace(o.Type) != "" {
			ot, err = game.ParseOutcomeType(o.Type)
		} else {
			ot, err = market.ResolveOutcomeType(s.resolver.Matcher(), o.Label, home, away)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: outcome %d: %v", ErrInvalidInput, i, err)
		}
		if ot == game.OutcomeDraw && mt == market.TypeMoneyline {
			return nil, fmt.Errorf("%w: moneyline market cannot price a draw", ErrInvalidInput)
		}
		if _, dup := seen[ot]; dup {
			return nil, fmt.Errorf("%w: outcome %s listed twice", ErrInvalidInput, ot)
		}
		seen[ot] = struct{}{}

		label := strings.TrimSpace(o.Label)
		if label == "" {
			label = string(ot)
		}
		prices = append(prices, market.Price{
			Outcome:     market.Outcome{Type: ot, Label: label},
			DecimalOdds: decimalOdds(o),
		})
	}
	return prices, nil
}

// decimalOdds converts the supplied price form. Unconvertible values become
// NaN so the snapshot builder rejects that outcome alone.
func decimalOdds(o QuoteOutcome) float64 {
	var (
		v   float64
		err error
	)
	switch {
	case o.DecimalOdds != nil:
		return *o.DecimalOdds
	case o.AmericanOdds != nil:
		v, err = odds.AmericanToDecimal(*o.AmericanOdds)
	case o.Price != nil:
		v, err = odds.PriceToDecimal(*o.Price)
	default:
		return math.NaN()
	}
	if err != nil {
		return math.NaN()
	}
	return v
}

func validateQuote(q *Quote) (market.Type, error) {
	q.Platform = strings.TrimSpace(q.Platform)
	q.NativeMarketID = strings.TrimSpace(q.NativeMarketID)
	if q.Platform == "" {
		return "", fmt.Errorf("%w: platform is required", ErrInvalidInput)
	}
	if q.NativeMarketID == "" {
		return "", fmt.Errorf("%w: native market id is required", ErrInvalidInput)
	}
	if q.StartTime.IsZero() || q.ObservedAt.IsZero() {
		return "", fmt.Errorf("%w: start time and observation time are required", ErrInvalidInput)
	}
	if len(q.Outcomes) == 0 {
		return "", fmt.Errorf("%w: at least one outcome is required", ErrInvalidInput)
	}
	for i, o := range q.Outcomes {
		set := 0
		for _, v := range []*float64{o.DecimalOdds, o.AmericanOdds, o.Price} {
			if v != nil {
				set++
			}
		}
		if set != 1 {
			return "", fmt.Errorf("%w: outcome %d must carry exactly one of decimal_odds, american_odds, price", ErrInvalidInput, i)
		}
		if strings.TrimSpace(o.Type) == "" && strings.TrimSpace(o.Label) == "" {
			return "", fmt.Errorf("%w: outcome %d needs an outcome type or a label", ErrInvalidInput, i)
		}
	}

	mt, ok := market.ParseType(q.MarketType)
	if !ok {
		return "", fmt.Errorf("%w: unknown market type %q", ErrInvalidInput, q.MarketType)
	}

	if strings.TrimSpace(q.RawHome) == "" || strings.TrimSpace(q.RawAway) == "" {
		away, home, ok := team.SplitMatchup(q.Title)
		if !ok {
			return "", fmt.Errorf("%w: raw home and away teams or a matchup title are required", ErrInvalidInput)
		}
		q.RawHome, q.RawAway = home, away
	}
	return mt, nil
}

// classifyIngestError separates data problems with the quote from
// infrastructure failures that a later poll may get past.
func classifyIngestError(err error) IngestStatus {
	switch {
	case errors.Is(err, team.ErrNoTeamMatch),
		errors.Is(err, team.ErrAmbiguousTeamMatch),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrConflict),
		errors.Is(err, odds.ErrInvalidOdds),
		errors.Is(err, odds.ErrInsufficientOutcomes):
		return IngestStatusSkipped
	default:
		return IngestStatusFailed
	}
}

// IngestBatch stores quotes from any number of platforms. Each platform runs
// in its own lane over a shared worker pool, and one bad quote never aborts
// the batch.
func (s *IngestionService) IngestBatch(ctx context.Context, quotes []Quote) (BatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.IngestBatch")
	defer span.End()

	if len(quotes) == 0 {
		return BatchResult{}, fmt.Errorf("%w: quotes are required", ErrInvalidInput)
	}
	if len(quotes) > s.cfg.MaxBatch {
		return BatchResult{}, fmt.Errorf("%w: batch of %d quotes exceeds limit %d", ErrInvalidInput, len(quotes), s.cfg.MaxBatch)
	}

	runID, err := s.ids.NewID()
	if err != nil {
		return BatchResult{}, fmt.Errorf("generate run id: %w", err)
	}

	lanes := make(map[string][]int)
	for i, q := range quotes {
		key := platform.NormalizeName(q.Platform)
		lanes[key] = append(lanes[key], i)
	}

	workerCount := s.cfg.Workers
	if workerCount > len(quotes) {
		workerCount = len(quotes)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return BatchResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	logger := s.logger.With("run_id", runID)
	logger.InfoContext(ctx, "ingest batch started", "quotes", len(quotes), "platforms", len(lanes), "workers", workerCount)

	items := make([]IngestResult, len(quotes))
	var (
		inserted   atomic.Int64
		duplicates atomic.Int64
		rejected   atomic.Int32
	)

	var lanesWG conc.WaitGroup
	for name, indexes := range lanes {
		name, indexes := name, indexes
		lanesWG.Go(func() {
			var workers sync.WaitGroup
			for _, idx := range indexes {
				idx := idx
				workers.Add(1)
				if err := pool.Submit(func() {
					defer workers.Done()
					res, _ := s.Ingest(ctx, quotes[idx])
					inserted.Add(int64(res.Inserted))
					duplicates.Add(int64(res.Duplicates))
					items[idx] = res
				}); err != nil {
					workers.Done()
					items[idx] = IngestResult{
						Platform:       name,
						NativeMarketID: quotes[idx].NativeMarketID,
						Status:         IngestStatusFailed,
						Message:        fmt.Sprintf("submit to worker pool: %v", err),
					}
					rejected.Add(1)
				}
			}
			workers.Wait()
		})
	}
	lanesWG.Wait()

	result := BatchResult{
		RunID:       runID,
		Total:       len(quotes),
		Inserted:    int(inserted.Load()),
		Duplicates:  int(duplicates.Load()),
		WorkerCount: workerCount,
		Platforms:   len(lanes),
		Items:       items,
	}
	for _, item := range items {
		switch item.Status {
		case IngestStatusStored:
			result.Stored++
		case IngestStatusPartial:
			result.Partial++
		case IngestStatusSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}

	logger.InfoContext(ctx, "ingest batch finished",
		"stored", result.Stored,
		"partial", result.Partial,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
	)
	if n := rejected.Load(); n > 0 {
		logger.ErrorContext(ctx, "worker pool rejected quotes", "count", n)
	}
	return result, nil
}
