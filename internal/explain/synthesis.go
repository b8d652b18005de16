// Package explain combines the numeric outputs of the pipeline's agents
// into a weighted, human-readable synthesis. It reports values as given and
// never re-scores them.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

const (
	// NeutralScore is the weighted mean when the total weight is zero
	NeutralScore = 0.5

	// VerdictThreshold is the lowest weighted mean labelled REAL
	VerdictThreshold = 0.5

	// DefaultWeight applies to agents with no weight set
	DefaultWeight = 1.0
)

// Weight returns w as an explicit agent weight
func Weight(w float64) *float64 {
	return &w
}

// Synthesize computes Σ score·weight / Σ weight over outputs, labels it
// REAL or FAKE, and writes a report of each agent's share. Agents are
// listed in name order so equal inputs give equal reports. An agent with
// no weight counts as 1.0; an explicit zero drops it from the mean.
func Synthesize(outputs map[string]model.AgentOutput) model.Synthesis {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	syn := model.Synthesis{
		AgentContributions:  make(map[string]model.AgentContribution, len(outputs)),
		DecisionFlow:        make([]model.DecisionStep, 0, len(outputs)),
		ConfidenceBreakdown: make(map[string]float64, len(outputs)),
	}

	var weighted, totalWeight float64
	for _, name := range names {
		out := outputs[name]
		weight := DefaultWeight
		if out.Weight != nil {
			weight = *out.Weight
		}

		contribution := out.Score * weight
		weighted += contribution
		totalWeight += weight

		syn.AgentContributions[name] = model.AgentContribution{
			Score:        out.Score,
			Confidence:   out.Confidence,
			Weight:       weight,
			Contribution: contribution,
		}
		syn.DecisionFlow = append(syn.DecisionFlow, model.DecisionStep{
			Agent:      name,
			Score:      out.Score,
			Confidence: out.Confidence,
		})
		syn.ConfidenceBreakdown[name] = out.Confidence
	}

	syn.FinalScore = NeutralScore
	if totalWeight > 0 {
		syn.FinalScore = weighted / totalWeight
	}

	syn.FinalVerdict = model.VerdictFake
	if syn.FinalScore >= VerdictThreshold {
		syn.FinalVerdict = model.VerdictReal
	}

	syn.FinalReasoning = reasoning(names, syn, weighted)
	return syn
}

func reasoning(names []string, syn model.Synthesis, weighted float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Final verdict: %s (weighted score %.2f)\n", syn.FinalVerdict, syn.FinalScore)

	if len(names) == 0 {
		b.WriteString("No agent outputs were available; the neutral score was used.")
		return b.String()
	}

	b.WriteString("Agent contributions:")
	for _, name := range names {
		c := syn.AgentContributions[name]
		pct := 0.0
		if weighted != 0 {
			pct = c.Contribution / weighted * 100
		}
		fmt.Fprintf(&b, "\n- %s: score %.2f, confidence %.2f, weight %.2f, contribution %.1f%%",
			name, c.Score, c.Confidence, c.Weight, pct)
	}
	return b.String()
}

// NormalizeScore maps a 1-5 credibility score onto [0, 1]
func NormalizeScore(v float64) float64 {
	n := (v - 1) / 4
	switch {
	case n < 0:
		return 0
	case n > 1:
		return 1
	}
	return n
}
