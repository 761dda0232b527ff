package team

import (
	"regexp"
	"strings"
)

var matchupSeparator = regexp.MustCompile(`(?i)\s+(?:@|at|vs\.?|versus|v\.?)\s+|\s*@\s*`)

// SplitMatchup splits listing text like "BOS vs NYY" or "Red Sox at
// Yankees" into visitor and home parts. Listings name the visiting team
// first for every supported separator.
func SplitMatchup(text string) (away, home string, ok bool) {
	loc := matchupSeparator.FindStringIndex(text)
	if loc == nil {
		return "", "", false
	}
	away = strings.TrimSpace(text[:loc[0]])
	home = strings.TrimSpace(text[loc[1]:])
	if away == "" || home == "" {
		return "", "", false
	}
	return away, home, true
}
