package postgres

import (
	"database/sql"
	"time"
)

type marketTableModel struct {
	ID         int64     `db:"id"`
	GameID     int64     `db:"game_id"`
	PlatformID int64     `db:"platform_id"`
	NativeID   string    `db:"native_id"`
	Type       string    `db:"market_type"`
	Name       string    `db:"market_name"`
	Identifier string    `db:"identifier"`
	CreatedAt  time.Time `db:"created_at"`
}

type marketInsertModel struct {
	GameID     int64  `db:"game_id"`
	PlatformID int64  `db:"platform_id"`
	NativeID   string `db:"native_id"`
	Type       string `db:"market_type"`
	Name       string `db:"market_name"`
	Identifier string `db:"identifier"`
}

type outcomeTableModel struct {
	ID       int64  `db:"id"`
	MarketID int64  `db:"market_id"`
	Type     string `db:"outcome_type"`
	Label    string `db:"label"`
}

type outcomeInsertModel struct {
	MarketID int64  `db:"market_id"`
	Type     string `db:"outcome_type"`
	Label    string `db:"label"`
}

type snapshotTableModel struct {
	ID               int64           `db:"id"`
	OutcomeID        int64           `db:"outcome_id"`
	MarketID         int64           `db:"market_id"`
	OutcomeType      string          `db:"outcome_type"`
	ObservedAt       time.Time       `db:"observed_at"`
	RawOdds          float64         `db:"raw_odds"`
	RawProbability   float64         `db:"raw_probability"`
	DevigProbability sql.NullFloat64 `db:"devig_probability"`
	DevigOdds        sql.NullFloat64 `db:"devig_odds"`
	DevigStatus      string          `db:"devig_status"`
	IsClosingLine    bool            `db:"is_closing_line"`
	CreatedAt        time.Time       `db:"created_at"`
}

type snapshotInsertModel struct {
	OutcomeID        int64     `db:"outcome_id"`
	MarketID         int64     `db:"market_id"`
	ObservedAt       time.Time `db:"observed_at"`
	RawOdds          float64   `db:"raw_odds"`
	RawProbability   float64   `db:"raw_probability"`
	DevigProbability *float64  `db:"devig_probability"`
	DevigOdds        *float64  `db:"devig_odds"`
	DevigStatus      string    `db:"devig_status"`
}

type timelineTableModel struct {
	snapshotTableModel
	PlatformName string `db:"platform_name"`
	PlatformType string `db:"platform_type"`
	MarketName   string `db:"market_name"`
	NativeID     string `db:"native_id"`
}
