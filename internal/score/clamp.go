package score

import (
	"math"
	"strconv"
	"strings"
)

// Credibility scores live in [MinScore, MaxScore]
const (
	MinScore = 1.0
	MaxScore = 5.0
)

// Clamp bounds v to [MinScore, MaxScore]. NaN maps to MinScore.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// InRange reports whether v is a finite score inside [MinScore, MaxScore]
func InRange(v float64) bool {
	return !math.IsNaN(v) && v >= MinScore && v <= MaxScore
}

// ParseScore reads an adapter answer as one floating-point number.
// Surrounding whitespace and a trailing period are ignored; anything else,
// including NaN and infinities, is a parse failure.
func ParseScore(text string) (float64, bool) {
	text = strings.TrimSuffix(strings.TrimSpace(text), ".")
	if text == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
