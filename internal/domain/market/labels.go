package market

import (
	"github.com/cockroachdb/errors"

	"github.com/riskibarqy/odds-ledger/internal/domain/game"
	"github.com/riskibarqy/odds-ledger/internal/domain/team"
)

// ResolveOutcomeType maps a raw outcome label to an outcome of the given
// game. Explicit types ("home_win", "tie") are taken as is; anything else is
// matched against the two teams, so a "Yes" token labelled "Red Sox" becomes
// the Red Sox side.
func ResolveOutcomeType(matcher *team.Matcher, label string, home, away team.Team) (game.OutcomeType, error) {
	if t, err := game.ParseOutcomeType(label); err == nil {
		return t, nil
	}
	switch team.Normalize(label) {
	case "draw", "x", "the draw":
		return game.OutcomeDraw, nil
	}

	side, err := matcher.MatchAmong(label, home, away)
	if err != nil {
		return "", errors.Wrapf(game.ErrInvalidOutcome, "label %q: %v", label, err)
	}
	if side.ID == home.ID {
		return game.OutcomeHomeWin, nil
	}
	return game.OutcomeAwayWin, nil
}
