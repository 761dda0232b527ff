package team

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrNoTeamMatch        = errors.New("no team match")
	ErrAmbiguousTeamMatch = errors.New("ambiguous team match")
)

// AmbiguousMatchError lists the teams tied at the best score.
type AmbiguousMatchError struct {
	Raw        string
	Keyword    string
	Candidates []Team
}

func (e *AmbiguousMatchError) Error() string {
	ids := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		ids = append(ids, c.ID)
	}
	return fmt.Sprintf("%s: %q matches %s", ErrAmbiguousTeamMatch, e.Raw, strings.Join(ids, ", "))
}

func (e *AmbiguousMatchError) Unwrap() error {
	return ErrAmbiguousTeamMatch
}

// Match is a resolved team with the keyword that won it.
type Match struct {
	Team    Team
	Keyword string
	Score   int
}

// Matcher resolves free text to one team of a sport by whole-word keyword
// matching. The longest matching keyword wins; a tie at the top is ambiguous.
type Matcher struct {
	directory *Directory
}

func NewMatcher(directory *Directory) *Matcher {
	return &Matcher{directory: directory}
}

func (m *Matcher) Directory() *Directory {
	return m.directory
}

func (m *Matcher) Match(raw, sport string) (Team, error) {
	match, err := m.MatchDetail(raw, sport)
	if err != nil {
		return Team{}, err
	}
	return match.Team, nil
}

func (m *Matcher) MatchDetail(raw, sport string) (Match, error) {
	tokens := strings.Fields(Normalize(raw))
	if len(tokens) == 0 {
		return Match{}, errors.Wrapf(ErrNoTeamMatch, "empty team text %q", raw)
	}

	var best []Match
	for _, t := range m.directory.Teams(sport) {
		keyword, score := longestKeyword(tokens, t.Keywords)
		if score == 0 {
			continue
		}
		switch {
		case len(best) == 0 || score > best[0].Score:
			best = []Match{{Team: t, Keyword: keyword, Score: score}}
		case score == best[0].Score:
			best = append(best, Match{Team: t, Keyword: keyword, Score: score})
		}
	}

	switch len(best) {
	case 0:
		return Match{}, errors.Wrapf(ErrNoTeamMatch, "%q in %s", raw, NormalizeSport(sport))
	case 1:
		return best[0], nil
	default:
		candidates := make([]Team, 0, len(best))
		for _, b := range best {
			candidates = append(candidates, b.Team)
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
		return Match{}, &AmbiguousMatchError{Raw: raw, Keyword: best[0].Keyword, Candidates: candidates}
	}
}

// MatchAmong restricts matching to the given teams, used to bind outcome
// labels to one side of an already resolved game.
func (m *Matcher) MatchAmong(raw string, teams ...Team) (Team, error) {
	tokens := strings.Fields(Normalize(raw))
	var (
		winner Team
		top    int
		tied   bool
	)
	for _, t := range teams {
		keywords := t.Keywords
		if len(keywords) == 0 {
			keywords = t.MatchKeywords()
		}
		_, score := longestKeyword(tokens, keywords)
		switch {
		case score == 0:
		case score > top:
			winner, top, tied = t, score, false
		case score == top:
			tied = true
		}
	}

	if top == 0 {
		return Team{}, errors.Wrapf(ErrNoTeamMatch, "%q", raw)
	}
	if tied {
		return Team{}, &AmbiguousMatchError{Raw: raw, Candidates: teams}
	}
	return winner, nil
}

// longestKeyword returns the longest keyword present in tokens as a
// contiguous run of whole words.
func longestKeyword(tokens []string, keywords []string) (string, int) {
	var (
		best  string
		score int
	)
	for _, k := range keywords {
		if len(k) <= score {
			continue
		}
		if containsPhrase(tokens, strings.Fields(k)) {
			best, score = k, len(k)
		}
	}
	return best, score
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		matched := true
		for j, word := range phrase {
			if tokens[i+j] != word {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
