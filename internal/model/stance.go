package model

import "strings"

// Stance is the relationship between a piece of evidence and a claim
type Stance string

const (
	StanceSupport    Stance = "support"
	StanceContradict Stance = "contradict"
	StanceUnrelated  Stance = "unrelated"
)

// SentinelRank sits below every valid stance rank
const SentinelRank = -2

// ParseStance normalizes a raw label (trim, lower-case) and reports whether it
// is one of the three valid stances. Misses return StanceUnrelated.
func ParseStance(raw string) (Stance, bool) {
	switch s := Stance(strings.ToLower(strings.TrimSpace(raw))); s {
	case StanceSupport, StanceContradict, StanceUnrelated:
		return s, true
	default:
		return StanceUnrelated, false
	}
}

// Valid reports whether s is one of the enumerated stances
func (s Stance) Valid() bool {
	return s == StanceSupport || s == StanceContradict || s == StanceUnrelated
}

// Rank orders stances: support (1) > contradict (0) > unrelated (-1)
func (s Stance) Rank() int {
	switch s {
	case StanceSupport:
		return 1
	case StanceContradict:
		return 0
	default:
		return -1
	}
}

func (s Stance) String() string {
	return string(s)
}
