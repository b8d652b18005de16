package pipeline

import (
	"fmt"

	"github.com/ppiankov/claimcheck/internal/explain"
	"github.com/ppiankov/claimcheck/internal/model"
)

func (p *Pipeline) buildResult(r *run) *model.VerificationResult {
	sel := r.selection

	result := &model.VerificationResult{
		Claims:               model.ClaimTexts(r.claims),
		Claim:                r.claim.Text,
		BestEvidence:         sel.Item,
		BestSourceDomain:     sel.Item.SourceDomain,
		Stance:               sel.Stance,
		SupportScore:         SupportScore(sel.Stance),
		SourceCredibility:    r.source.Score,
		FinalCredibility:     r.final.FinalScore,
		AllConsideredSources: r.verdicts,
	}
	if r.explain {
		result.Explanation = p.explanation(r)
	}
	return result
}

func (p *Pipeline) explanation(r *run) *model.ExplanationBundle {
	sel := r.selection

	selection := model.SelectionExplanation{
		ChosenSource: sel.Item.URL,
		Reason:       fmt.Sprintf("Highest stance rank (%d)", sel.Rank),
		TieBreak:     sel.TieBreak,
		Fallback:     sel.Fallback,
	}
	switch {
	case sel.Fallback:
		selection.Reason = "No source could be classified; first source used as unrelated"
	case sel.TieBreak:
		selection.Reason = fmt.Sprintf("Highest stance rank (%d); trusted domain preferred on tie", sel.Rank)
	}
	if !sel.Fallback {
		selection.StanceExplanation = r.judgements[sel.Index].Rationale
	}

	return &model.ExplanationBundle{
		ClaimExtraction: model.ClaimExtractionExplanation{
			Extraction:     fmt.Sprintf("Extracted %d claim(s)", len(r.claims)),
			ClaimsAnalyzed: len(r.claims),
		},
		EvidenceRetrieval: model.EvidenceRetrievalExplanation{
			TotalSourcesFound:       r.found,
			SocialPlatformsFiltered: r.filtered.Skipped,
			ValidNewsSources:        len(r.filtered.Kept),
			Enriched:                r.enriched,
		},
		BestEvidenceSelection: selection,
		SourceCredibility:     r.source,
		FinalCalculation:      r.final,
		Synthesis:             explain.Synthesize(p.agentOutputs(r)),
	}
}

// agentOutputs maps each stage onto [0, 1] for the synthesis. Confidence
// drops when a stage fell back to its default.
func (p *Pipeline) agentOutputs(r *run) map[string]model.AgentOutput {
	sel := r.selection

	evidenceConfidence := 1.0
	switch {
	case sel.Fallback:
		evidenceConfidence = 0
	case r.judgements[sel.Index].Fallback != "":
		evidenceConfidence = 0.5
	}

	sourceConfidence := 1.0
	if r.source.UsedDefault {
		sourceConfidence = 0.5
	}

	var classified, supports, valid int
	for i, v := range r.verdicts {
		if !v.Classified {
			continue
		}
		classified++
		if v.Stance == model.StanceSupport {
			supports++
		}
		if r.judgements[i].Fallback == "" {
			valid++
		}
	}
	crossScore := 0.0
	if classified > 0 {
		crossScore = float64(supports) / float64(classified)
	}
	crossConfidence := 0.0
	if n := len(r.verdicts); n > 0 {
		crossConfidence = float64(valid) / float64(n)
	}

	return map[string]model.AgentOutput{
		model.AgentEvidenceSupport: {
			Score:      explain.NormalizeScore(SupportScore(sel.Stance)),
			Confidence: evidenceConfidence,
			Weight:     p.weight(model.AgentEvidenceSupport),
		},
		model.AgentSourceCredibility: {
			Score:      explain.NormalizeScore(r.source.Score),
			Confidence: sourceConfidence,
			Weight:     p.weight(model.AgentSourceCredibility),
		},
		model.AgentCrossVerification: {
			Score:      crossScore,
			Confidence: crossConfidence,
			Weight:     p.weight(model.AgentCrossVerification),
		},
	}
}

// weight returns the configured weight of agent, nil when none is set
func (p *Pipeline) weight(agent string) *float64 {
	w, ok := p.weights[agent]
	if !ok {
		return nil
	}
	return explain.Weight(w)
}
