package game

import (
	"strings"
	"time"

	"github.com/riskibarqy/odds-ledger/internal/domain/team"
)

// New builds a scheduled game for two resolved teams. Names are taken from
// the canonical teams and local fields use the home team's timezone.
func New(home, away team.Team, start time.Time, season string) Game {
	start = start.UTC().Truncate(time.Second)
	loc := home.Location()
	local := start.In(loc)

	if strings.TrimSpace(season) == "" {
		season = InferSeason(start)
	}

	return Game{
		Sport:          home.Sport,
		League:         home.League,
		HomeTeamID:     home.ID,
		AwayTeamID:     away.ID,
		HomeTeamName:   home.NormalizedName(),
		AwayTeamName:   away.NormalizedName(),
		LocalDate:      local.Format(time.DateOnly),
		StartTime:      start,
		LocalStartTime: local,
		Timezone:       loc.String(),
		Season:         strings.TrimSpace(season),
		Status:         StatusScheduled,
	}
}
