package accuracy

import (
	"github.com/riskibarqy/odds-ledger/internal/domain/game"
)

// Brier is the mean squared error of a prediction over its outcomes:
// always-right at probability 1 scores 0 and a 50/50 binary call scores 0.25.
func Brier(p Prediction) float64 {
	if len(p.Probabilities) == 0 {
		return 0
	}
	var sum float64
	for outcome, prob := range p.Probabilities {
		d := prob - indicator(outcome == p.Actual)
		sum += d * d
	}
	return sum / float64(len(p.Probabilities))
}

// BrierFor scores a single outcome type of a prediction.
func BrierFor(p Prediction, outcome game.OutcomeType) (float64, bool) {
	prob, ok := p.Probabilities[outcome]
	if !ok {
		return 0, false
	}
	d := prob - indicator(outcome == p.Actual)
	return d * d, true
}

// Favorite returns the single most likely outcome; ok is false on a tie.
func Favorite(p Prediction) (game.OutcomeType, bool) {
	var best game.OutcomeType
	top, unique := -1.0, false
	for outcome, prob := range p.Probabilities {
		switch {
		case prob > top:
			best, top, unique = outcome, prob, true
		case prob == top:
			unique = false
		}
	}
	return best, unique
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
