package odds

import "github.com/cockroachdb/errors"

var (
	ErrInvalidOdds          = errors.New("invalid odds")
	ErrInsufficientOutcomes = errors.New("insufficient outcomes")
	ErrDevigConvergence     = errors.New("devig did not converge")
)
