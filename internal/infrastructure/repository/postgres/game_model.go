package postgres

import (
	"database/sql"
	"time"
)

type gameTableModel struct {
	ID                 int64          `db:"id"`
	Sport              string         `db:"sport"`
	League             string         `db:"league"`
	HomeTeamID         string         `db:"home_team_public_id"`
	AwayTeamID         string         `db:"away_team_public_id"`
	HomeTeamNormalized string         `db:"home_team_normalized"`
	AwayTeamNormalized string         `db:"away_team_normalized"`
	LocalDate          time.Time      `db:"local_date"`
	StartTime          time.Time      `db:"start_time"`
	LocalStartTime     time.Time      `db:"local_start_time"`
	Timezone           string         `db:"timezone"`
	Season             string         `db:"season"`
	Status             string         `db:"status"`
	ActualOutcome      sql.NullString `db:"actual_outcome"`
	HomeScore          sql.NullInt64  `db:"home_score"`
	AwayScore          sql.NullInt64  `db:"away_score"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type gameInsertModel struct {
	Sport              string    `db:"sport"`
	League             string    `db:"league"`
	HomeTeamID         string    `db:"home_team_public_id"`
	AwayTeamID         string    `db:"away_team_public_id"`
	HomeTeamNormalized string    `db:"home_team_normalized"`
	AwayTeamNormalized string    `db:"away_team_normalized"`
	LocalDate          string    `db:"local_date"`
	StartTime          time.Time `db:"start_time"`
	LocalStartTime     time.Time `db:"local_start_time"`
	Timezone           string    `db:"timezone"`
	Season             string    `db:"season"`
	Status             string    `db:"status"`
}
