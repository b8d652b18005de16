package explain

import (
	"strings"
	"testing"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_WeightedMean(t *testing.T) {
	syn := Synthesize(map[string]model.AgentOutput{
		model.AgentEvidenceSupport:   {Score: 0.75, Confidence: 0.9, Weight: Weight(0.4)},
		model.AgentSourceCredibility: {Score: 1.0, Confidence: 0.8, Weight: Weight(0.4)},
		model.AgentCrossVerification: {Score: 0.5, Confidence: 0.6, Weight: Weight(0.2)},
	})

	assert.InDelta(t, 0.8, syn.FinalScore, 1e-9)
	assert.Equal(t, model.VerdictReal, syn.FinalVerdict)
	assert.InDelta(t, 0.3, syn.AgentContributions[model.AgentEvidenceSupport].Contribution, 1e-9)
	assert.Equal(t, 0.6, syn.ConfidenceBreakdown[model.AgentCrossVerification])

	require.Len(t, syn.DecisionFlow, 3)
	assert.Equal(t, model.AgentCrossVerification, syn.DecisionFlow[0].Agent)
	assert.Equal(t, model.AgentEvidenceSupport, syn.DecisionFlow[1].Agent)
	assert.Equal(t, model.AgentSourceCredibility, syn.DecisionFlow[2].Agent)
}

func TestSynthesize_DefaultWeight(t *testing.T) {
	syn := Synthesize(map[string]model.AgentOutput{
		"a": {Score: 0.2},
		"b": {Score: 0.6},
	})

	assert.InDelta(t, 0.4, syn.FinalScore, 1e-9)
	assert.Equal(t, model.VerdictFake, syn.FinalVerdict)
	assert.Equal(t, 1.0, syn.AgentContributions["a"].Weight)
}

func TestSynthesize_ExplicitZeroWeight(t *testing.T) {
	syn := Synthesize(map[string]model.AgentOutput{
		"a": {Score: 1, Weight: Weight(1)},
		"b": {Score: 0, Weight: Weight(0)},
	})

	assert.Equal(t, 1.0, syn.FinalScore)
	assert.Equal(t, model.VerdictReal, syn.FinalVerdict)
	assert.Equal(t, 0.0, syn.AgentContributions["b"].Weight)
	assert.Contains(t, syn.FinalReasoning, "- b: score 0.00, confidence 0.00, weight 0.00, contribution 0.0%")
}

func TestSynthesize_AllWeightsZero(t *testing.T) {
	syn := Synthesize(map[string]model.AgentOutput{
		"a": {Score: 0.1, Weight: Weight(0)},
		"b": {Score: 0.2, Weight: Weight(0)},
	})

	assert.Equal(t, NeutralScore, syn.FinalScore)
	assert.Equal(t, model.VerdictReal, syn.FinalVerdict)
}

func TestSynthesize_Empty(t *testing.T) {
	syn := Synthesize(nil)

	assert.Equal(t, NeutralScore, syn.FinalScore)
	assert.Equal(t, model.VerdictReal, syn.FinalVerdict)
	assert.Contains(t, syn.FinalReasoning, "neutral")
}

func TestSynthesize_ReportsValuesUnchanged(t *testing.T) {
	in := map[string]model.AgentOutput{"only": {Score: 0.123, Confidence: 0.456, Weight: Weight(2)}}
	syn := Synthesize(in)

	c := syn.AgentContributions["only"]
	assert.Equal(t, 0.123, c.Score)
	assert.Equal(t, 0.456, c.Confidence)
	assert.Equal(t, 2.0, c.Weight)
	assert.Equal(t, model.AgentOutput{Score: 0.123, Confidence: 0.456, Weight: Weight(2)}, in["only"])
	assert.True(t, strings.Contains(syn.FinalReasoning, "contribution 100.0%"))
}

func TestSynthesize_Deterministic(t *testing.T) {
	in := map[string]model.AgentOutput{
		"x": {Score: 0.1, Weight: Weight(1)}, "y": {Score: 0.9, Weight: Weight(3)}, "z": {Score: 0.5},
	}
	first := Synthesize(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Synthesize(in))
	}
}

func TestNormalizeScore(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeScore(1))
	assert.Equal(t, 0.75, NormalizeScore(4))
	assert.Equal(t, 1.0, NormalizeScore(5))
	assert.Equal(t, 0.0, NormalizeScore(-3))
	assert.Equal(t, 1.0, NormalizeScore(9))
}
