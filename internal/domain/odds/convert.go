package odds

import (
	"math"

	"github.com/cockroachdb/errors"
)

// AmericanToDecimal converts moneyline prices such as -150 or +130.
func AmericanToDecimal(american float64) (float64, error) {
	switch {
	case math.IsNaN(american) || math.IsInf(american, 0):
		return 0, errors.Wrapf(ErrInvalidOdds, "american odds %v", american)
	case american >= 100:
		return american/100 + 1, nil
	case american <= -100:
		return 100/math.Abs(american) + 1, nil
	default:
		return 0, errors.Wrapf(ErrInvalidOdds, "american odds %v must be <= -100 or >= 100", american)
	}
}

// DecimalToAmerican is the inverse of AmericanToDecimal, rounded to whole units.
func DecimalToAmerican(decimalOdds float64) (int, error) {
	if _, err := ImpliedProbability(decimalOdds); err != nil {
		return 0, err
	}
	if decimalOdds >= 2 {
		return int(math.Round((decimalOdds - 1) * 100)), nil
	}
	return int(math.Round(-100 / (decimalOdds - 1))), nil
}

// PriceToDecimal converts a prediction market contract price in (0,1).
func PriceToDecimal(price float64) (float64, error) {
	if math.IsNaN(price) || price <= 0 || price >= 1 {
		return 0, errors.Wrapf(ErrInvalidOdds, "price %v must be within (0,1)", price)
	}
	return 1 / price, nil
}
