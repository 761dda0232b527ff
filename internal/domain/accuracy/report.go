package accuracy

import (
	"sort"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/platform"
)

const ScopeAll = "all"

// Options configures aggregation.
type Options struct {
	OutcomeType *game.OutcomeType
	MinSamples  int
	Policy      Policy
}

// Report is the accuracy of one platform under one outcome scope and
// window. Metrics stay nil when InsufficientData is set.
type Report struct {
	PlatformID       int64    `json:"platform_id"`
	Platform         string   `json:"platform"`
	PlatformType     string   `json:"platform_type"`
	Region           string   `json:"region,omitempty"`
	OutcomeScope     string   `json:"outcome_scope"`
	Window           string   `json:"window"`
	Predictions      int      `json:"predictions"`
	Games            int      `json:"games"`
	Brier            *float64 `json:"brier_score"`
	RawAccuracy      *float64 `json:"raw_accuracy"`
	AvgPredicted     *float64 `json:"avg_predicted_probability"`
	InsufficientData bool     `json:"insufficient_data"`
}

// Aggregate computes one report per platform. Platforms without enough
// qualifying predictions are still listed, flagged as insufficient data.
func Aggregate(platforms []platform.Platform, predictions []Prediction, opts Options) []Report {
	minSamples := opts.MinSamples
	if minSamples < 1 {
		minSamples = 1
	}
	scope := ScopeAll
	if opts.OutcomeType != nil {
		scope = string(*opts.OutcomeType)
	}

	type acc struct {
		n        int
		brier    float64
		hits     int
		predSum  float64
		gameSeen map[int64]struct{}
	}
	byPlatform := make(map[int64]*acc, len(platforms))
	for _, p := range platforms {
		byPlatform[p.ID] = &acc{gameSeen: make(map[int64]struct{})}
	}

	for _, pred := range predictions {
		a, ok := byPlatform[pred.PlatformID]
		if !ok {
			continue
		}

		var (
			score     float64
			predicted float64
		)
		if opts.OutcomeType != nil {
			s, ok := BrierFor(pred, *opts.OutcomeType)
			if !ok {
				continue
			}
			score, predicted = s, pred.Probabilities[*opts.OutcomeType]
		} else {
			score, predicted = Brier(pred), pred.Probabilities[pred.Actual]
		}

		a.n++
		a.brier += score
		a.predSum += predicted
		if fav, unique := Favorite(pred); unique && fav == pred.Actual {
			a.hits++
		}
		a.gameSeen[pred.GameID] = struct{}{}
	}

	out := make([]Report, 0, len(platforms))
	for _, p := range platforms {
		a := byPlatform[p.ID]
		r := Report{
			PlatformID:   p.ID,
			Platform:     p.Name,
			PlatformType: string(p.Type),
			Region:       p.Region,
			OutcomeScope: scope,
			Window:       opts.Policy.String(),
			Predictions:  a.n,
			Games:        len(a.gameSeen),
		}
		if a.n < minSamples {
			r.InsufficientData = true
			out = append(out, r)
			continue
		}
		n := float64(a.n)
		brier, rawAcc, avg := a.brier/n, float64(a.hits)/n, a.predSum/n
		r.Brier, r.RawAccuracy, r.AvgPredicted = &brier, &rawAcc, &avg
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		return out[i].Region < out[j].Region
	})
	return out
}
