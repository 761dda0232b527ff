package game

import (
	"sort"
	"time"
)

const (
	DefaultTolerance = 30 * time.Minute
	DefaultCeiling   = 3 * time.Hour
)

// MatchWindow binds a quote to an existing game by start time. Candidates
// within Ceiling are eligible and the closest one wins; anything farther is
// a different game.
type MatchWindow struct {
	Tolerance time.Duration
	Ceiling   time.Duration
}

func DefaultMatchWindow() MatchWindow {
	return MatchWindow{Tolerance: DefaultTolerance, Ceiling: DefaultCeiling}
}

// Selection is the outcome of a window search.
type Selection struct {
	Game  Game
	Delta time.Duration
	// Skewed is set when the winner lies outside Tolerance but inside Ceiling.
	Skewed bool
	// Ambiguous is set when several candidates share the winning distance;
	// the lowest id is chosen.
	Ambiguous bool
	Tied      []int64
}

// Bounds is the start time interval that can hold an eligible candidate.
func (w MatchWindow) Bounds(start time.Time) (time.Time, time.Time) {
	return start.Add(-w.Ceiling), start.Add(w.Ceiling)
}

// Select picks the candidate closest to start within the ceiling.
func (w MatchWindow) Select(candidates []Game, start time.Time) (Selection, bool) {
	ordered := append([]Game(nil), candidates...)
	sort.Slice(ordered, func(i, j int) bool {
		di, dj := absDuration(ordered[i].StartTime.Sub(start)), absDuration(ordered[j].StartTime.Sub(start))
		if di != dj {
			return di < dj
		}
		return ordered[i].ID < ordered[j].ID
	})

	if len(ordered) == 0 {
		return Selection{}, false
	}

	best := ordered[0]
	delta := absDuration(best.StartTime.Sub(start))
	if delta > w.Ceiling {
		return Selection{}, false
	}

	sel := Selection{Game: best, Delta: delta, Skewed: delta > w.Tolerance}
	for _, c := range ordered[1:] {
		if absDuration(c.StartTime.Sub(start)) != delta {
			break
		}
		if !sel.Ambiguous {
			sel.Tied = append(sel.Tied, best.ID)
		}
		sel.Ambiguous = true
		sel.Tied = append(sel.Tied, c.ID)
	}
	return sel, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
