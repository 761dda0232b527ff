package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/odds-ledger/internal/domain/accuracy"
	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	qb "github.com/riskibarqy/odds-ledger/internal/platform/querybuilder"
)

type accuracyPointTableModel struct {
	GameID        int64     `db:"game_id"`
	MarketID      int64     `db:"market_id"`
	OutcomeID     int64     `db:"outcome_id"`
	PlatformID    int64     `db:"platform_id"`
	OutcomeType   string    `db:"outcome_type"`
	ObservedAt    time.Time `db:"observed_at"`
	GameStart     time.Time `db:"start_time"`
	Probability   float64   `db:"devig_probability"`
	ActualOutcome string    `db:"actual_outcome"`
}

type AccuracyRepository struct {
	db *sqlx.DB
}

func NewAccuracyRepository(db *sqlx.DB) *AccuracyRepository {
	return &AccuracyRepository{db: db}
}

func (r *AccuracyRepository) ListPoints(ctx context.Context, q accuracy.Query) ([]accuracy.Point, error) {
	builder := qb.Select(
		"g.id AS game_id",
		"s.market_id",
		"s.outcome_id",
		"m.platform_id",
		"o.outcome_type",
		"s.observed_at",
		"g.start_time",
		"s.devig_probability",
		"g.actual_outcome",
	).
		From("odds_snapshots s").
		Join("JOIN outcomes o ON o.id = s.outcome_id").
		Join("JOIN markets m ON m.id = s.market_id").
		Join("JOIN games g ON g.id = m.game_id").
		Where(
			qb.Eq("g.status", string(game.StatusCompleted)),
			qb.IsNotNull("g.actual_outcome"),
			qb.Eq("s.devig_status", string(market.DevigOK)),
			qb.Expr("s.observed_at <= g.start_time"),
		).
		OrderBy("s.market_id", "s.observed_at")
	if q.PlatformID != 0 {
		builder.Where(qb.Eq("m.platform_id", q.PlatformID))
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list accuracy points query: %w", err)
	}

	var rows []accuracyPointTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list accuracy points: %w", err)
	}

	out := make([]accuracy.Point, 0, len(rows))
	for _, row := range rows {
		out = append(out, accuracy.Point{
			GameID:      row.GameID,
			MarketID:    row.MarketID,
			OutcomeID:   row.OutcomeID,
			PlatformID:  row.PlatformID,
			OutcomeType: game.OutcomeType(row.OutcomeType),
			ObservedAt:  row.ObservedAt.UTC(),
			GameStart:   row.GameStart.UTC(),
			Probability: row.Probability,
			Actual:      game.OutcomeType(row.ActualOutcome),
		})
	}
	return out, nil
}
