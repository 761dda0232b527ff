package game

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrDuplicateGame  = errors.New("duplicate game")
	ErrGameNotFound   = errors.New("game not found")
	ErrInvalidOutcome = errors.New("invalid outcome")
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", errors.Newf("unknown game status %q", raw)
	}
}

// OutcomeType names one side of a moneyline market and a game's realized result.
type OutcomeType string

const (
	OutcomeHomeWin OutcomeType = "home_win"
	OutcomeAwayWin OutcomeType = "away_win"
	OutcomeDraw    OutcomeType = "draw"
)

func ParseOutcomeType(raw string) (OutcomeType, error) {
	switch o := OutcomeType(strings.ToLower(strings.TrimSpace(raw))); o {
	case OutcomeHomeWin, OutcomeAwayWin, OutcomeDraw:
		return o, nil
	case "home":
		return OutcomeHomeWin, nil
	case "away":
		return OutcomeAwayWin, nil
	case "tie":
		return OutcomeDraw, nil
	default:
		return "", errors.Wrapf(ErrInvalidOutcome, "%q", raw)
	}
}

// OutcomeFromScores derives the realized outcome of a finished game.
func OutcomeFromScores(home, away int) OutcomeType {
	switch {
	case home > away:
		return OutcomeHomeWin
	case away > home:
		return OutcomeAwayWin
	default:
		return OutcomeDraw
	}
}

// Game is the canonical record every platform market links to. The team
// pair is fixed at creation; only status, outcome and scores change.
type Game struct {
	ID             int64
	Sport          string
	League         string
	HomeTeamID     string
	AwayTeamID     string
	HomeTeamName   string
	AwayTeamName   string
	LocalDate      string
	StartTime      time.Time
	LocalStartTime time.Time
	Timezone       string
	Season         string
	Status         Status
	ActualOutcome  *OutcomeType
	HomeScore      *int
	AwayScore      *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Scoreable reports whether the game can be used for accuracy scoring.
func (g Game) Scoreable() bool {
	return g.Status == StatusCompleted && g.ActualOutcome != nil
}

// InferSeason maps a UTC start to a season label; January and February
// starts belong to the previous year's season.
func InferSeason(start time.Time) string {
	start = start.UTC()
	year := start.Year()
	if start.Month() <= time.February {
		year--
	}
	return strconv.Itoa(year)
}

// Result is the write applied by the outcome recorder.
type Result struct {
	Status        Status
	ActualOutcome *OutcomeType
	HomeScore     *int
	AwayScore     *int
}

func (r Result) Validate() error {
	switch r.Status {
	case StatusCompleted:
		if r.ActualOutcome == nil {
			return errors.Wrap(ErrInvalidOutcome, "completed game requires an outcome")
		}
	case StatusCancelled:
		if r.ActualOutcome != nil {
			return errors.Wrap(ErrInvalidOutcome, "cancelled game cannot carry an outcome")
		}
	default:
		return errors.Wrapf(ErrInvalidOutcome, "result status %q", r.Status)
	}
	if (r.HomeScore == nil) != (r.AwayScore == nil) {
		return errors.Wrap(ErrInvalidOutcome, "home and away score must be given together")
	}
	if r.HomeScore != nil && (*r.HomeScore < 0 || *r.AwayScore < 0) {
		return errors.Wrap(ErrInvalidOutcome, "scores must be >= 0")
	}
	if r.HomeScore != nil && r.ActualOutcome != nil && OutcomeFromScores(*r.HomeScore, *r.AwayScore) != *r.ActualOutcome {
		return errors.Wrapf(ErrInvalidOutcome, "outcome %s contradicts score %d-%d", *r.ActualOutcome, *r.HomeScore, *r.AwayScore)
	}
	return nil
}
