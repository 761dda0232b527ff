package team

import (
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
)

// ErrInvalidTeam marks reference data that cannot enter the directory.
var ErrInvalidTeam = errors.New("invalid team")

// Team is canonical reference data for one club. Keywords hold the
// normalized aliases used by the Matcher.
type Team struct {
	ID           string   `yaml:"id"`
	Sport        string   `yaml:"sport"`
	League       string   `yaml:"league"`
	Name         string   `yaml:"name"`
	Abbreviation string   `yaml:"abbreviation"`
	City         string   `yaml:"city"`
	Nickname     string   `yaml:"nickname"`
	Timezone     string   `yaml:"timezone"`
	Keywords     []string `yaml:"keywords"`
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.Wrap(ErrInvalidTeam, "team id is required")
	}
	if strings.TrimSpace(t.Sport) == "" {
		return errors.Wrapf(ErrInvalidTeam, "team %s sport is required", t.ID)
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.Wrapf(ErrInvalidTeam, "team %s name is required", t.ID)
	}
	if _, err := time.LoadLocation(t.Timezone); err != nil || strings.TrimSpace(t.Timezone) == "" {
		return errors.Wrapf(ErrInvalidTeam, "team %s timezone %q is invalid", t.ID, t.Timezone)
	}

	return nil
}

// Location returns the home timezone, falling back to UTC.
func (t Team) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil || t.Timezone == "" {
		return time.UTC
	}
	return loc
}

// NormalizedName is the deterministic lowercase form stored on games.
func (t Team) NormalizedName() string {
	return Normalize(t.Name)
}

// MatchKeywords returns the normalized alias set including name, city,
// nickname and abbreviation.
func (t Team) MatchKeywords() []string {
	seen := make(map[string]struct{}, len(t.Keywords)+4)
	out := make([]string, 0, len(t.Keywords)+4)
	add := func(raw string) {
		k := Normalize(raw)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	add(t.Name)
	add(t.City)
	add(t.Nickname)
	add(t.Abbreviation)
	for _, k := range t.Keywords {
		add(k)
	}
	return out
}

// NormalizeSport lowercases a sport key such as "MLB".
func NormalizeSport(sport string) string {
	return strings.ToLower(strings.TrimSpace(sport))
}

// Normalize lowercases text, drops apostrophes and periods inside words
// ("St. Louis" -> "st louis", "A's" -> "as") and turns every other
// non-alphanumeric rune into a single space.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	space := true
	for _, r := range strings.ToLower(raw) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case r == '\'' || r == '’' || r == '.':
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
