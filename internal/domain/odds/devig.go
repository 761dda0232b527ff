package odds

import (
	"math"

	"github.com/cockroachdb/errors"
)

const (
	// Tolerance bounds |sum(p_i^k) - 1| at the accepted exponent.
	Tolerance = 1e-9

	minExponent   = 1e-6
	maxExponent   = 50.0
	exponentLimit = 1e6
	maxIterations = 500
)

// Devigged is the fair distribution derived from one set of competing prices.
type Devigged struct {
	Implied       []float64
	Probabilities []float64
	FairOdds      []float64
	Exponent      float64
	Overround     float64
}

// Devig removes the margin from decimal odds with the constant exponent
// (power) method: p_i = 1/odds_i and the fair probability is p_i^k where k
// solves sum(p_i^k) = 1. Output order follows input order.
func Devig(decimalOdds []float64) (Devigged, error) {
	if len(decimalOdds) < 2 {
		return Devigged{}, errors.Wrapf(ErrInsufficientOutcomes, "got %d outcome(s), need at least 2", len(decimalOdds))
	}

	implied := make([]float64, len(decimalOdds))
	var total float64
	for i, o := range decimalOdds {
		p, err := ImpliedProbability(o)
		if err != nil {
			return Devigged{}, errors.Wrapf(err, "outcome %d", i)
		}
		implied[i] = p
		total += p
	}

	k, err := solveExponent(implied)
	if err != nil {
		return Devigged{}, err
	}

	out := Devigged{
		Implied:       implied,
		Probabilities: make([]float64, len(implied)),
		FairOdds:      make([]float64, len(implied)),
		Exponent:      k,
		Overround:     total - 1,
	}
	for i, p := range implied {
		prob := math.Pow(p, k)
		out.Probabilities[i] = prob
		out.FairOdds[i] = 1 / prob
	}
	return out, nil
}

// ImpliedProbability returns 1/odds for a valid decimal price.
func ImpliedProbability(decimalOdds float64) (float64, error) {
	if math.IsNaN(decimalOdds) || math.IsInf(decimalOdds, 0) || decimalOdds <= 1 {
		return 0, errors.Wrapf(ErrInvalidOdds, "decimal odds %v must be > 1", decimalOdds)
	}
	return 1 / decimalOdds, nil
}

// f(k) = sum(p_i^k) is strictly decreasing for p_i in (0,1), with f -> n as
// k -> 0 and f -> 0 as k grows, so bisection on a bracketing interval finds
// the unique root.
func solveExponent(implied []float64) (float64, error) {
	f := func(k float64) float64 {
		var sum float64
		for _, p := range implied {
			sum += math.Pow(p, k)
		}
		return sum - 1
	}

	lo, hi := minExponent, maxExponent
	for f(lo) < 0 {
		lo /= 10
		if lo < math.SmallestNonzeroFloat64*1e10 {
			return 0, errors.Wrap(ErrDevigConvergence, "lower bracket collapsed")
		}
	}
	for f(hi) > 0 {
		hi *= 2
		if hi > exponentLimit {
			return 0, errors.Wrap(ErrDevigConvergence, "upper bracket exceeded")
		}
	}

	for i := 0; i < maxIterations; i++ {
		mid := lo + (hi-lo)/2
		if mid <= lo || mid >= hi {
			// The bracket cannot shrink further in float64.
			break
		}
		v := f(mid)
		if math.Abs(v) <= Tolerance {
			return mid, nil
		}
		if v > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}

	return 0, errors.Wrapf(ErrDevigConvergence, "no exponent within %d iterations", maxIterations)
}
