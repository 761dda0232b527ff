package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/odds-ledger/internal/domain/team"
	qb "github.com/riskibarqy/odds-ledger/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) ListBySport(ctx context.Context, sport string) ([]team.Team, error) {
	builder := qb.Select("*").From("teams").OrderBy("name")
	if sport = team.NormalizeSport(sport); sport != "" {
		builder.Where(qb.Eq("sport", sport))
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams by sport query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams by sport: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamFromRow(row))
	}
	return out, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.Eq("public_id", teamID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team by id query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("get team by id: %w", err)
	}
	return teamFromRow(row), true, nil
}

func (r *TeamRepository) Upsert(ctx context.Context, teams []team.Team) error {
	if len(teams) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert teams: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range teams {
		insertModel := teamInsertModel{
			PublicID:       item.ID,
			Sport:          item.Sport,
			League:         item.League,
			Name:           item.Name,
			NormalizedName: item.NormalizedName(),
			Abbreviation:   item.Abbreviation,
			City:           item.City,
			Nickname:       item.Nickname,
			Timezone:       item.Timezone,
			Keywords:       pq.StringArray(item.Keywords),
		}
		query, args, err := qb.InsertModel("teams", insertModel, `ON CONFLICT (public_id)
DO UPDATE SET
    sport = EXCLUDED.sport,
    league = EXCLUDED.league,
    name = EXCLUDED.name,
    normalized_name = EXCLUDED.normalized_name,
    abbreviation = EXCLUDED.abbreviation,
    city = EXCLUDED.city,
    nickname = EXCLUDED.nickname,
    timezone = EXCLUDED.timezone,
    keywords = EXCLUDED.keywords,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert team query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert team id=%s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert teams tx: %w", err)
	}
	return nil
}

func teamFromRow(row teamTableModel) team.Team {
	return team.Team{
		ID:           row.PublicID,
		Sport:        row.Sport,
		League:       row.League,
		Name:         row.Name,
		Abbreviation: row.Abbreviation,
		City:         row.City,
		Nickname:     row.Nickname,
		Timezone:     row.Timezone,
		Keywords:     []string(row.Keywords),
	}
}
