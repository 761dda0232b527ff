package team

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// Directory is an immutable, load-once index of canonical teams. It is safe
// for concurrent readers because nothing mutates it after construction.
type Directory struct {
	byID    map[string]Team
	bySport map[string][]Team
}

func NewDirectory(teams []Team) (*Directory, error) {
	d := &Directory{
		byID:    make(map[string]Team, len(teams)),
		bySport: make(map[string][]Team),
	}

	names := make(map[string]string, len(teams))
	for _, t := range teams {
		t.Sport = NormalizeSport(t.Sport)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, ok := d.byID[t.ID]; ok {
			return nil, errors.Wrapf(ErrInvalidTeam, "duplicate team id %s", t.ID)
		}
		key := t.Sport + "|" + t.NormalizedName()
		if other, ok := names[key]; ok {
			return nil, errors.Wrapf(ErrInvalidTeam, "teams %s and %s share canonical name %q in %s", other, t.ID, t.Name, t.Sport)
		}
		names[key] = t.ID

		t.Keywords = t.MatchKeywords()
		d.byID[t.ID] = t
		d.bySport[t.Sport] = append(d.bySport[t.Sport], t)
	}

	for sport := range d.bySport {
		items := d.bySport[sport]
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	}
	return d, nil
}

// NewReferenceDirectory builds a Directory from the embedded reference data.
func NewReferenceDirectory() (*Directory, error) {
	teams, err := LoadReference()
	if err != nil {
		return nil, err
	}
	return NewDirectory(teams)
}

func (d *Directory) ByID(id string) (Team, bool) {
	t, ok := d.byID[id]
	return t, ok
}

// Teams returns a copy of the teams of one sport ordered by name.
func (d *Directory) Teams(sport string) []Team {
	return append([]Team(nil), d.bySport[NormalizeSport(sport)]...)
}

func (d *Directory) Sports() []string {
	out := make([]string, 0, len(d.bySport))
	for sport := range d.bySport {
		out = append(out, sport)
	}
	sort.Strings(out)
	return out
}

func (d *Directory) All() []Team {
	out := make([]Team, 0, len(d.byID))
	for _, sport := range d.Sports() {
		out = append(out, d.bySport[sport]...)
	}
	return out
}
