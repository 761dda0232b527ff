package market

import (
	"context"
	"time"
)

// Repository describes market, outcome and snapshot persistence.
//
// SaveSnapshots inserts the rows that do not exist yet for (outcome,
// observed_at), ignoring duplicates. In the same transaction it re-devigs
// every touched (market, observed_at) over all rows stored there with
// DevigObservation, and recomputes the closing flag of every touched
// outcome against gameStart. Writers of one market are serialized. The
// devig fields of the passed snapshots are ignored.
type Repository interface {
	FindOrCreateMarket(ctx context.Context, m Market) (Market, error)
	FindOrCreateOutcomes(ctx context.Context, marketID int64, outcomes []Outcome) ([]Outcome, error)
	SaveSnapshots(ctx context.Context, gameStart time.Time, snapshots []Snapshot) (SaveResult, error)
	ListPending(ctx context.Context, limit int) ([]Snapshot, error)
	ListAt(ctx context.Context, marketID int64, observedAt time.Time) ([]Snapshot, error)
	UpdateDevig(ctx context.Context, snapshots []Snapshot) error
	ListByGame(ctx context.Context, gameID int64) ([]TimelineEntry, error)
}
