package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
	qb "github.com/riskibarqy/odds-ledger/internal/platform/querybuilder"
)

type platformTableModel struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Type      string    `db:"platform_type"`
	Region    string    `db:"region"`
	CreatedAt time.Time `db:"created_at"`
}

type platformInsertModel struct {
	Name   string `db:"name"`
	Type   string `db:"platform_type"`
	Region string `db:"region"`
}

type PlatformRepository struct {
	db *sqlx.DB
}

func NewPlatformRepository(db *sqlx.DB) *PlatformRepository {
	return &PlatformRepository{db: db}
}

// FindOrCreate keeps the stored type of an existing platform.
func (r *PlatformRepository) FindOrCreate(ctx context.Context, p platform.Platform) (platform.Platform, error) {
	p = p.Canonical()

	// The no-op update makes RETURNING yield the existing row on conflict.
	query, args, err := qb.InsertModel("platforms", platformInsertModel{
		Name:   p.Name,
		Type:   string(p.Type),
		Region: p.Region,
	}, `ON CONFLICT (name, region) DO UPDATE SET name = EXCLUDED.name
RETURNING *`)
	if err != nil {
		return platform.Platform{}, fmt.Errorf("build upsert platform query: %w", err)
	}

	var row platformTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return platform.Platform{}, fmt.Errorf("upsert platform name=%s: %w", p.Name, err)
	}
	return platformFromRow(row), nil
}

func (r *PlatformRepository) List(ctx context.Context) ([]platform.Platform, error) {
	query, args, err := qb.Select("*").From("platforms").OrderBy("name", "region").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list platforms query: %w", err)
	}

	var rows []platformTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}

	out := make([]platform.Platform, 0, len(rows))
	for _, row := range rows {
		out = append(out, platformFromRow(row))
	}
	return out, nil
}

func platformFromRow(row platformTableModel) platform.Platform {
	return platform.Platform{
		ID:     row.ID,
		Name:   row.Name,
		Type:   platform.Type(row.Type),
		Region: row.Region,
	}
}
