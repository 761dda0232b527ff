package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	qb "github.com/riskibarqy/odds-ledger/internal/platform/querybuilder"
)

const gameIdentityConstraint = "uq_games_identity"

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) ListCandidates(ctx context.Context, sport, homeTeamID, awayTeamID string, from, to time.Time) ([]game.Game, error) {
	query, args, err := qb.Select("*").From("games").
		Where(
			qb.Eq("sport", sport),
			qb.Eq("home_team_public_id", homeTeamID),
			qb.Eq("away_team_public_id", awayTeamID),
			qb.Gte("start_time", from.UTC()),
			qb.Lte("start_time", to.UTC()),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select candidate games query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select candidate games: %w", err)
	}
	return gamesFromRows(rows), nil
}

func (r *GameRepository) Create(ctx context.Context, g game.Game) (game.Game, error) {
	insertModel := gameInsertModel{
		Sport:              g.Sport,
		League:             g.League,
		HomeTeamID:         g.HomeTeamID,
		AwayTeamID:         g.AwayTeamID,
		HomeTeamNormalized: g.HomeTeamName,
		AwayTeamNormalized: g.AwayTeamName,
		LocalDate:          g.LocalDate,
		StartTime:          g.StartTime.UTC(),
		LocalStartTime:     wallClock(g.LocalStartTime),
		Timezone:           g.Timezone,
		Season:             g.Season,
		Status:             string(g.Status),
	}
	query, args, err := qb.InsertModel("games", insertModel, "RETURNING *")
	if err != nil {
		return game.Game{}, fmt.Errorf("build insert game query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isUniqueViolation(err, gameIdentityConstraint) {
			return game.Game{}, fmt.Errorf("%w: %s %s@%s %s", game.ErrDuplicateGame, g.Sport, g.AwayTeamID, g.HomeTeamID, g.StartTime.Format(time.RFC3339))
		}
		return game.Game{}, fmt.Errorf("insert game: %w", err)
	}
	return gameFromRow(row), nil
}

func (r *GameRepository) GetByID(ctx context.Context, id int64) (game.Game, bool, error) {
	query, args, err := qb.Select("*").From("games").
		Where(qb.Eq("id", id)).
		Limit(1).
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build select game by id query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, fmt.Errorf("get game by id: %w", err)
	}
	return gameFromRow(row), true, nil
}

func (r *GameRepository) List(ctx context.Context, filter game.ListFilter) ([]game.Game, error) {
	builder := qb.Select("*").From("games").OrderBy("start_time", "id")
	if filter.Sport != "" {
		builder.Where(qb.Eq("sport", filter.Sport))
	}
	if filter.Status != "" {
		builder.Where(qb.Eq("status", string(filter.Status)))
	}
	if !filter.From.IsZero() {
		builder.Where(qb.Gte("start_time", filter.From.UTC()))
	}
	if !filter.To.IsZero() {
		builder.Where(qb.Lte("start_time", filter.To.UTC()))
	}
	if filter.Limit > 0 {
		builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list games query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return gamesFromRows(rows), nil
}

func (r *GameRepository) RecordResult(ctx context.Context, id int64, result game.Result) (game.Game, error) {
	var outcome *string
	if result.ActualOutcome != nil {
		v := string(*result.ActualOutcome)
		outcome = &v
	}

	query, args, err := qb.Update("games").
		Set("status", string(result.Status)).
		Set("actual_outcome", outcome).
		Set("home_score", nullableInt(result.HomeScore)).
		Set("away_score", nullableInt(result.AwayScore)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return game.Game{}, fmt.Errorf("build record game result query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, fmt.Errorf("%w: id=%d", game.ErrGameNotFound, id)
		}
		return game.Game{}, fmt.Errorf("record game result: %w", err)
	}
	return gameFromRow(row), nil
}

func gamesFromRows(rows []gameTableModel) []game.Game {
	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, gameFromRow(row))
	}
	return out
}

func gameFromRow(row gameTableModel) game.Game {
	start := row.StartTime.UTC()
	loc, err := time.LoadLocation(row.Timezone)
	if err != nil {
		loc = time.UTC
	}

	g := game.Game{
		ID:             row.ID,
		Sport:          row.Sport,
		League:         row.League,
		HomeTeamID:     row.HomeTeamID,
		AwayTeamID:     row.AwayTeamID,
		HomeTeamName:   row.HomeTeamNormalized,
		AwayTeamName:   row.AwayTeamNormalized,
		LocalDate:      row.LocalDate.Format(time.DateOnly),
		StartTime:      start,
		LocalStartTime: start.In(loc),
		Timezone:       row.Timezone,
		Season:         row.Season,
		Status:         game.Status(row.Status),
		HomeScore:      nullInt64ToIntPtr(row.HomeScore),
		AwayScore:      nullInt64ToIntPtr(row.AwayScore),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.ActualOutcome.Valid {
		outcome := game.OutcomeType(row.ActualOutcome.String)
		g.ActualOutcome = &outcome
	}
	return g
}
