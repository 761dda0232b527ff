package team

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	_ "time/tzdata"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

//go:embed reference/*.yaml
var referenceFS embed.FS

type referenceFile struct {
	Sport  string `yaml:"sport"`
	League string `yaml:"league"`
	Teams  []Team `yaml:"teams"`
}

// LoadReference returns every team shipped with the binary.
func LoadReference() ([]Team, error) {
	return loadReferenceFS(referenceFS, "reference")
}

func loadReferenceFS(fsys fs.FS, dir string) ([]Team, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "read team reference dir")
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var out []Team
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		teams, err := ParseReference(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", name)
		}
		out = append(out, teams...)
	}
	return out, nil
}

// ParseReference decodes one reference document. Sport and league set at the
// document level apply to every team that leaves them empty.
func ParseReference(raw []byte) ([]Team, error) {
	var doc referenceFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "decode team reference")
	}

	out := make([]Team, 0, len(doc.Teams))
	for _, t := range doc.Teams {
		if t.Sport == "" {
			t.Sport = doc.Sport
		}
		if t.League == "" {
			t.League = doc.League
		}
		t.Sport = NormalizeSport(t.Sport)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
