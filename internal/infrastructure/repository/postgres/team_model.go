package postgres

import (
	"time"

	"github.com/lib/pq"
)

type teamTableModel struct {
	ID             int64          `db:"id"`
	PublicID       string         `db:"public_id"`
	Sport          string         `db:"sport"`
	League         string         `db:"league"`
	Name           string         `db:"name"`
	NormalizedName string         `db:"normalized_name"`
	Abbreviation   string         `db:"abbreviation"`
	City           string         `db:"city"`
	Nickname       string         `db:"nickname"`
	Timezone       string         `db:"timezone"`
	Keywords       pq.StringArray `db:"keywords"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type teamInsertModel struct {
	PublicID       string         `db:"public_id"`
	Sport          string         `db:"sport"`
	League         string         `db:"league"`
	Name           string         `db:"name"`
	NormalizedName string         `db:"normalized_name"`
	Abbreviation   string         `db:"abbreviation"`
	City           string         `db:"city"`
	Nickname       string         `db:"nickname"`
	Timezone       string         `db:"timezone"`
	Keywords       pq.StringArray `db:"keywords"`
}
