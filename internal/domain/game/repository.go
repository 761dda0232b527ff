package game

import (
	"context"
	"time"
)

// ListFilter narrows game listings; zero values mean no constraint.
type ListFilter struct {
	Sport  string
	Status Status
	From   time.Time
	To     time.Time
	Limit  int
}

// Repository describes game persistence needs from use cases. Create must
// return ErrDuplicateGame when the (sport, home, away, start) identity
// already exists.
type Repository interface {
	ListCandidates(ctx context.Context, sport, homeTeamID, awayTeamID string, from, to time.Time) ([]Game, error)
	Create(ctx context.Context, g Game) (Game, error)
	GetByID(ctx context.Context, id int64) (Game, bool, error)
	List(ctx context.Context, filter ListFilter) ([]Game, error)
	RecordResult(ctx context.Context, id int64, result Result) (Game, error)
}
