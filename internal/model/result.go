package model

// VerificationResult is the terminal artifact of one pipeline run.
// It is built once and never mutated afterwards.
type VerificationResult struct {
	Claims               []string           `json:"claims"`                 // Every claim extracted from the input
	Claim                string             `json:"claim"`                  // The claim that was verified
	BestEvidence         EvidenceItem       `json:"best_evidence"`          // The single selected evidence item
	BestSourceDomain     string             `json:"best_source_domain"`     // Domain of the selected evidence
	Stance               Stance             `json:"stance"`                 // Stance of the selected evidence
	SupportScore         float64            `json:"support_score"`          // Evidence-support score derived from stance
	SourceCredibility    float64            `json:"source_credibility"`     // 1-5 credibility of the best source
	FinalCredibility     float64            `json:"final_credibility"`      // 1-5 aggregated credibility
	AllConsideredSources []SourceVerdict    `json:"all_considered_sources"` // Per-source stance, in retrieval order
	Explanation          *ExplanationBundle `json:"explanation,omitempty"`  // Optional, derived only
}

// SourceVerdict is the stance assigned to one filtered evidence item
type SourceVerdict struct {
	URL          string `json:"url"`
	Snippet      string `json:"snippet"`
	SourceDomain string `json:"source_domain"`
	Stance       Stance `json:"stance"`
	Rationale    string `json:"explanation,omitempty"`
	Trusted      bool   `json:"trusted"`
	Classified   bool   `json:"classified"`      // False when the classifier rejected the input
	Error        string `json:"error,omitempty"` // Why classification was skipped
}

// ExplanationBundle records what each stage produced and why.
// Derived data only: nothing reads it back as a source of truth.
type ExplanationBundle struct {
	ClaimExtraction       ClaimExtractionExplanation   `json:"claim_extraction"`
	EvidenceRetrieval     EvidenceRetrievalExplanation `json:"evidence_retrieval"`
	BestEvidenceSelection SelectionExplanation         `json:"best_evidence_selection"`
	SourceCredibility     SourceAssessment             `json:"source_credibility"`
	FinalCalculation      FinalCalculation             `json:"final_calculation"`
	Synthesis             Synthesis                    `json:"synthesis"`
}

// ClaimExtractionExplanation summarizes the extraction stage
type ClaimExtractionExplanation struct {
	Extraction     string `json:"extraction"`
	ClaimsAnalyzed int    `json:"claims_analyzed"`
}

// EvidenceRetrievalExplanation summarizes retrieval and filtering
type EvidenceRetrievalExplanation struct {
	TotalSourcesFound       int `json:"total_sources_found"`
	SocialPlatformsFiltered int `json:"social_platforms_filtered"`
	ValidNewsSources        int `json:"valid_news_sources"`
	Enriched                int `json:"enriched,omitempty"`
}

// SelectionExplanation records why the best evidence won
type SelectionExplanation struct {
	ChosenSource      string `json:"chosen_source"`
	Reason            string `json:"reason"`
	StanceExplanation string `json:"stance_explanation,omitempty"`
	TieBreak          bool   `json:"tie_break"` // Won a rank tie on domain trust
	Fallback          bool   `json:"fallback"`  // No item ranked; first item used
}

// SourceAssessment is the source credibility adapter's extended output
type SourceAssessment struct {
	Score               float64  `json:"score"`
	Explanation         string   `json:"explanation"`
	ContributingFactors []string `json:"contributing_factors"`
	IsTrusted           bool     `json:"is_trusted"`
	UsedDefault         bool     `json:"used_default"` // Score is the neutral default
}

// FinalCalculation is the score aggregator's extended output
type FinalCalculation struct {
	FinalScore   float64          `json:"final_score"`
	Explanation  string           `json:"explanation"`
	UsedFallback bool             `json:"used_fallback"` // Mean of inputs instead of the external answer
	Breakdown    ScoreBreakdown   `json:"breakdown"`
	Attribution  ScoreAttribution `json:"attribution"`
}

// ScoreBreakdown echoes the aggregator inputs
type ScoreBreakdown struct {
	EvidenceQuality   EvidenceQuality   `json:"evidence_quality"`
	SourceCredibility SourceCredibility `json:"source_credibility"`
}

// EvidenceQuality is the evidence half of a breakdown
type EvidenceQuality struct {
	Score  float64 `json:"score"`
	Stance Stance  `json:"stance"`
}

// SourceCredibility is the source half of a breakdown
type SourceCredibility struct {
	Score float64 `json:"score"`
}

// ScoreAttribution is a descriptive split between the two inputs. It never
// reflects how the external aggregation weighted them.
type ScoreAttribution struct {
	EvidenceSupportPct   float64 `json:"evidence_support_pct"`
	SourceCredibilityPct float64 `json:"source_credibility_pct"`
}

// Verdict is the binary display label of a synthesis, separate from Stance
type Verdict string

const (
	VerdictReal Verdict = "REAL"
	VerdictFake Verdict = "FAKE"
)

// AgentOutput is one agent's numeric output fed to the synthesis
type AgentOutput struct {
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Weight     *float64 `json:"weight,omitempty"` // Nil means unspecified (1.0)
}

// AgentContribution is one agent's line in the synthesis
type AgentContribution struct {
	Score        float64 `json:"score"`
	Confidence   float64 `json:"confidence"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"` // score * weight
}

// DecisionStep is one agent in the order it was considered
type DecisionStep struct {
	Agent      string  `json:"agent"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Synthesis is the weighted, human-readable combination of agent outputs
type Synthesis struct {
	AgentContributions  map[string]AgentContribution `json:"agent_contributions"`
	DecisionFlow        []DecisionStep               `json:"decision_flow"`
	ConfidenceBreakdown map[string]float64           `json:"confidence_breakdown"`
	FinalScore          float64                      `json:"final_score"`
	FinalVerdict        Verdict                      `json:"final_verdict"`
	FinalReasoning      string                       `json:"final_reasoning"`
}

// WithoutExplanation returns a copy of r with the explanation bundle dropped
func (r *VerificationResult) WithoutExplanation() *VerificationResult {
	c := *r
	c.Explanation = nil
	return &c
}
