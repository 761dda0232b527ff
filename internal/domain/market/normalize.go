package market

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/odds-ledger/internal/domain/odds"
)

// Price is one outcome's raw decimal odds at one observation.
type Price struct {
	Outcome     Outcome
	DecimalOdds float64
}

// Rejected is a price dropped before storage.
type Rejected struct {
	Outcome Outcome
	Err     error
}

// BuildSnapshots turns one quote into raw snapshot rows. Prices with
// invalid odds are rejected individually. Rows leave here with status
// failed; the devig fields are settled by DevigObservation once the rows
// are stored next to the rest of their observation.
func BuildSnapshots(prices []Price, observedAt time.Time) ([]Snapshot, []Rejected) {
	observedAt = observedAt.UTC()

	var (
		snapshots = make([]Snapshot, 0, len(prices))
		rejected  []Rejected
	)
	for _, p := range prices {
		implied, err := odds.ImpliedProbability(p.DecimalOdds)
		if err != nil {
			rejected = append(rejected, Rejected{Outcome: p.Outcome, Err: err})
			continue
		}
		snapshots = append(snapshots, Snapshot{
			OutcomeID:      p.Outcome.ID,
			MarketID:       p.Outcome.MarketID,
			OutcomeType:    p.Outcome.Type,
			ObservedAt:     observedAt,
			RawOdds:        p.DecimalOdds,
			RawProbability: implied,
			DevigStatus:    DevigFailed,
		})
	}
	return snapshots, rejected
}

// DevigObservation settles the devig fields of every stored row of one
// market at one observation time. The set devigs only when it covers all
// outcomes the market lists; a partial set is failed until the missing
// sides arrive at the same timestamp.
func DevigObservation(rows []Snapshot, marketOutcomes int) error {
	if len(rows) == 0 {
		return nil
	}
	if len(rows) < marketOutcomes {
		err := errors.Wrapf(odds.ErrInsufficientOutcomes, "observation has %d of %d outcomes", len(rows), marketOutcomes)
		clearDevig(rows, DevigFailed)
		return err
	}
	return ApplyDevig(rows)
}

// ApplyDevig devigs one observation of a market in place. On failure no
// devig field is set and DevigStatus records whether a retry may help.
func ApplyDevig(snapshots []Snapshot) error {
	raw := make([]float64, len(snapshots))
	for i, s := range snapshots {
		raw[i] = s.RawOdds
	}

	result, err := odds.Devig(raw)
	if err != nil {
		status := DevigFailed
		if errors.Is(err, odds.ErrDevigConvergence) {
			status = DevigPending
		}
		clearDevig(snapshots, status)
		return err
	}

	for i := range snapshots {
		p, o := result.Probabilities[i], result.FairOdds[i]
		snapshots[i].DevigProbability = &p
		snapshots[i].DevigOdds = &o
		snapshots[i].DevigStatus = DevigOK
	}
	return nil
}

func clearDevig(snapshots []Snapshot, status DevigStatus) {
	for i := range snapshots {
		snapshots[i].DevigStatus = status
		snapshots[i].DevigProbability = nil
		snapshots[i].DevigOdds = nil
	}
}
