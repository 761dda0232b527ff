package accuracy

import (
	"fmt"
	"strings"
	"time"
)

type PolicyKind string

const (
	PolicyClosing PolicyKind = "closing"
	PolicyBefore  PolicyKind = "before"
)

// Policy chooses which pre-game observation of a market is scored.
type Policy struct {
	Kind   PolicyKind
	Offset time.Duration
}

func ClosingPolicy() Policy {
	return Policy{Kind: PolicyClosing}
}

// ParsePolicy accepts "closing" (the default) or "before:<duration>", for
// example "before:2h".
func ParsePolicy(raw string) (Policy, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == string(PolicyClosing) {
		return ClosingPolicy(), nil
	}

	offset, ok := strings.CutPrefix(raw, string(PolicyBefore)+":")
	if !ok {
		return Policy{}, fmt.Errorf("unknown window %q: valid forms are closing, before:<duration>", raw)
	}
	d, err := time.ParseDuration(offset)
	if err != nil {
		return Policy{}, fmt.Errorf("parse window offset %q: %w", offset, err)
	}
	if d <= 0 {
		return Policy{}, fmt.Errorf("window offset must be > 0")
	}
	return Policy{Kind: PolicyBefore, Offset: d}, nil
}

func (p Policy) String() string {
	if p.Kind == PolicyBefore {
		return string(PolicyBefore) + ":" + p.Offset.String()
	}
	return string(PolicyClosing)
}
