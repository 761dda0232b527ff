package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/market"
	qb "github.com/riskibarqy/odds-ledger/internal/platform/querybuilder"
)

var snapshotColumns = []string{
	"s.id",
	"s.outcome_id",
	"s.market_id",
	"o.outcome_type",
	"s.observed_at",
	"s.raw_odds",
	"s.raw_probability",
	"s.devig_probability",
	"s.devig_odds",
	"s.devig_status",
	"s.is_closing_line",
	"s.created_at",
}

type MarketRepository struct {
	db *sqlx.DB
}

func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

func (r *MarketRepository) FindOrCreateMarket(ctx context.Context, m market.Market) (market.Market, error) {
	query, args, err := qb.InsertModel("markets", marketInsertModel{
		GameID:     m.GameID,
		PlatformID: m.PlatformID,
		NativeID:   m.NativeID,
		Type:       string(m.Type),
		Name:       m.Name,
		Identifier: m.Identifier,
	}, `ON CONFLICT (platform_id, native_id) DO UPDATE SET
    market_name = COALESCE(NULLIF(EXCLUDED.market_name, ''), markets.market_name),
    identifier = COALESCE(NULLIF(EXCLUDED.identifier, ''), markets.identifier)
RETURNING *`)
	if err != nil {
		return market.Market{}, fmt.Errorf("build upsert market query: %w", err)
	}

	var row marketTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return market.Market{}, fmt.Errorf("upsert market native_id=%s: %w", m.NativeID, err)
	}
	return market.Market{
		ID:         row.ID,
		GameID:     row.GameID,
		PlatformID: row.PlatformID,
		NativeID:   row.NativeID,
		Type:       market.Type(row.Type),
		Name:       row.Name,
		Identifier: row.Identifier,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (r *MarketRepository) FindOrCreateOutcomes(ctx context.Context, marketID int64, outcomes []market.Outcome) ([]market.Outcome, error) {
	out := make([]market.Outcome, 0, len(outcomes))
	for _, item := range outcomes {
		query, args, err := qb.InsertModel("outcomes", outcomeInsertModel{
			MarketID: marketID,
			Type:     string(item.Type),
			Label:    item.Label,
		}, `ON CONFLICT (market_id, outcome_type) DO UPDATE SET label = outcomes.label
RETURNING *`)
		if err != nil {
			return nil, fmt.Errorf("build upsert outcome query: %w", err)
		}

		var row outcomeTableModel
		if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
			return nil, fmt.Errorf("upsert outcome market=%d type=%s: %w", marketID, item.Type, err)
		}
		out = append(out, market.Outcome{
			ID:       row.ID,
			MarketID: row.MarketID,
			Type:     game.OutcomeType(row.Type),
			Label:    row.Label,
		})
	}
	return out, nil
}

// SaveSnapshots locks the touched market rows so that concurrent writers of
// one market serialize their observation devig and closing-line updates.
func (r *MarketRepository) SaveSnapshots(ctx context.Context, gameStart time.Time, snapshots []market.Snapshot) (market.SaveResult, error) {
	result := market.SaveResult{Closing: make(map[int64]int64)}
	if len(snapshots) == 0 {
		return result, nil
	}

	outcomeIDs := uniqueSorted(snapshots, func(s market.Snapshot) int64 { return s.OutcomeID })
	marketIDs := uniqueSorted(snapshots, func(s market.Snapshot) int64 { return s.MarketID })

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return market.SaveResult{}, fmt.Errorf("begin tx save snapshots: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	lockQuery, lockArgs, err := qb.Select("id").From("markets").
		Where(qb.In("id", int64SliceToAny(marketIDs))).
		OrderBy("id").
		ForUpdate().
		ToSQL()
	if err != nil {
		return market.SaveResult{}, fmt.Errorf("build lock markets query: %w", err)
	}
	var locked []int64
	if err := tx.SelectContext(ctx, &locked, lockQuery, lockArgs...); err != nil {
		return market.SaveResult{}, fmt.Errorf("lock markets: %w", err)
	}
	if len(locked) != len(marketIDs) {
		return market.SaveResult{}, fmt.Errorf("lock markets: found %d of %d", len(locked), len(marketIDs))
	}

	rows := make([]snapshotInsertModel, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, snapshotInsertModel{
			OutcomeID:      s.OutcomeID,
			MarketID:       s.MarketID,
			ObservedAt:     s.ObservedAt.UTC(),
			RawOdds:        s.RawOdds,
			RawProbability: s.RawProbability,
			DevigStatus:    string(market.DevigFailed),
		})
	}
	insertQuery, insertArgs, err := qb.InsertModels("odds_snapshots", rows, "ON CONFLICT (outcome_id, observed_at) DO NOTHING RETURNING id")
	if err != nil {
		return market.SaveResult{}, fmt.Errorf("build insert snapshots query: %w", err)
	}
	var insertedIDs []int64
	if err := tx.SelectContext(ctx, &insertedIDs, insertQuery, insertArgs...); err != nil {
		return market.SaveResult{}, fmt.Errorf("insert snapshots market=%d: %w", snapshots[0].MarketID, err)
	}
	result.Inserted = len(insertedIDs)
	result.Duplicates = len(snapshots) - len(insertedIDs)

	for _, obs := range market.Observations(snapshots) {
		obs, err := devigObservation(ctx, tx, obs)
		if err != nil {
			return market.SaveResult{}, err
		}
		result.Observations = append(result.Observations, obs)
	}

	for _, outcomeID := range outcomeIDs {
		closingID, ok, err := markClosing(ctx, tx, outcomeID, gameStart.UTC())
		if err != nil {
			return market.SaveResult{}, err
		}
		if ok {
			result.Closing[outcomeID] = closingID
		}
	}

	if err := tx.Commit(); err != nil {
		return market.SaveResult{}, fmt.Errorf("commit save snapshots tx: %w", err)
	}
	return result, nil
}

// devigObservation re-devigs every stored row of one market observation
// inside tx. The market row must already be locked.
func devigObservation(ctx context.Context, tx *sqlx.Tx, obs market.Observation) (market.Observation, error) {
	rows, err := selectSnapshots(ctx, tx, snapshotsAt(obs.MarketID, obs.ObservedAt), "list observation snapshots")
	if err != nil {
		return obs, err
	}

	countQuery, countArgs, err := qb.Select("COUNT(*)").From("outcomes").
		Where(qb.Eq("market_id", obs.MarketID)).
		ToSQL()
	if err != nil {
		return obs, fmt.Errorf("build count outcomes query: %w", err)
	}
	var outcomes int
	if err := tx.GetContext(ctx, &outcomes, countQuery, countArgs...); err != nil {
		return obs, fmt.Errorf("count outcomes market=%d: %w", obs.MarketID, err)
	}

	obs.Err = market.DevigObservation(rows, outcomes)
	obs.Rows = len(rows)
	if len(rows) > 0 {
		obs.Status = rows[0].DevigStatus
	}
	if err := updateDevig(ctx, tx, rows); err != nil {
		return obs, err
	}
	return obs, nil
}

func uniqueSorted(snapshots []market.Snapshot, key func(market.Snapshot) int64) []int64 {
	seen := make(map[int64]struct{}, len(snapshots))
	out := make([]int64, 0, len(snapshots))
	for _, s := range snapshots {
		k := key(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func markClosing(ctx context.Context, tx *sqlx.Tx, outcomeID int64, gameStart time.Time) (int64, bool, error) {
	clearQuery, clearArgs, err := qb.Update("odds_snapshots").
		Set("is_closing_line", false).
		Where(qb.Eq("outcome_id", outcomeID), qb.Eq("is_closing_line", true)).
		ToSQL()
	if err != nil {
		return 0, false, fmt.Errorf("build clear closing line query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, clearQuery, clearArgs...); err != nil {
		return 0, false, fmt.Errorf("clear closing line outcome=%d: %w", outcomeID, err)
	}

	setQuery, setArgs, err := qb.Update("odds_snapshots").
		Set("is_closing_line", true).
		Where(qb.Expr(`id = (
    SELECT id FROM odds_snapshots
    WHERE outcome_id = ? AND observed_at <= ?
    ORDER BY observed_at DESC, id DESC
    LIMIT 1
)`, outcomeID, gameStart)).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		return 0, false, fmt.Errorf("build set closing line query: %w", err)
	}

	var id int64
	if err := tx.GetContext(ctx, &id, setQuery, setArgs...); err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("set closing line outcome=%d: %w", outcomeID, err)
	}
	return id, true, nil
}

func (r *MarketRepository) ListPending(ctx context.Context, limit int) ([]market.Snapshot, error) {
	builder := qb.Select(snapshotColumns...).From("odds_snapshots s").
		Join("JOIN outcomes o ON o.id = s.outcome_id").
		Where(qb.Eq("s.devig_status", string(market.DevigPending))).
		OrderBy("s.market_id", "s.observed_at", "s.id")
	if limit > 0 {
		builder.Limit(limit)
	}
	return selectSnapshots(ctx, r.db, builder, "list pending snapshots")
}

func (r *MarketRepository) ListAt(ctx context.Context, marketID int64, observedAt time.Time) ([]market.Snapshot, error) {
	return selectSnapshots(ctx, r.db, snapshotsAt(marketID, observedAt), "list snapshots at observation")
}

func snapshotsAt(marketID int64, observedAt time.Time) *qb.SelectBuilder {
	return qb.Select(snapshotColumns...).From("odds_snapshots s").
		Join("JOIN outcomes o ON o.id = s.outcome_id").
		Where(
			qb.Eq("s.market_id", marketID),
			qb.Eq("s.observed_at", observedAt.UTC()),
		).
		OrderBy("s.id")
}

func selectSnapshots(ctx context.Context, q sqlx.QueryerContext, builder *qb.SelectBuilder, op string) ([]market.Snapshot, error) {
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []snapshotTableModel
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]market.Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, snapshotFromRow(row))
	}
	return out, nil
}

func (r *MarketRepository) UpdateDevig(ctx context.Context, snapshots []market.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx update devig: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := updateDevig(ctx, tx, snapshots); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update devig tx: %w", err)
	}
	return nil
}

func updateDevig(ctx context.Context, tx *sqlx.Tx, snapshots []market.Snapshot) error {
	for _, s := range snapshots {
		query, args, err := qb.Update("odds_snapshots").
			Set("devig_probability", s.DevigProbability).
			Set("devig_odds", s.DevigOdds).
			Set("devig_status", string(s.DevigStatus)).
			Where(qb.Eq("id", s.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build update devig query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update devig snapshot=%d: %w", s.ID, err)
		}
	}
	return nil
}

func (r *MarketRepository) ListByGame(ctx context.Context, gameID int64) ([]market.TimelineEntry, error) {
	columns := append(append([]string(nil), snapshotColumns...),
		"p.name AS platform_name",
		"p.platform_type",
		"m.market_name",
		"m.native_id",
	)
	query, args, err := qb.Select(columns...).From("odds_snapshots s").
		Join("JOIN outcomes o ON o.id = s.outcome_id").
		Join("JOIN markets m ON m.id = s.market_id").
		Join("JOIN platforms p ON p.id = m.platform_id").
		Where(qb.Eq("m.game_id", gameID)).
		OrderBy("s.observed_at", "s.id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list game timeline query: %w", err)
	}

	var rows []timelineTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list game timeline: %w", err)
	}

	out := make([]market.TimelineEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, market.TimelineEntry{
			Snapshot:     snapshotFromRow(row.snapshotTableModel),
			PlatformName: row.PlatformName,
			PlatformType: row.PlatformType,
			MarketName:   row.MarketName,
			NativeID:     row.NativeID,
		})
	}
	return out, nil
}

func snapshotFromRow(row snapshotTableModel) market.Snapshot {
	return market.Snapshot{
		ID:               row.ID,
		OutcomeID:        row.OutcomeID,
		MarketID:         row.MarketID,
		OutcomeType:      game.OutcomeType(row.OutcomeType),
		ObservedAt:       row.ObservedAt.UTC(),
		RawOdds:          row.RawOdds,
		RawProbability:   row.RawProbability,
		DevigProbability: nullFloat64ToPtr(row.DevigProbability),
		DevigOdds:        nullFloat64ToPtr(row.DevigOdds),
		DevigStatus:      market.DevigStatus(row.DevigStatus),
		IsClosingLine:    row.IsClosingLine,
		CreatedAt:        row.CreatedAt,
	}
}
