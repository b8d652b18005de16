package llm

import "fmt"

const (
	systemFactChecker = "You are a careful fact-checking assistant. Follow the output format exactly."
	NoClaims          = "NONE" // Claim extraction answer when nothing is verifiable
)

// ClaimExtractionPrompt asks for atomic, verifiable claims, one per line
func ClaimExtractionPrompt(article string) CompletionRequest {
	return CompletionRequest{
		System: systemFactChecker,
		Prompt: fmt.Sprintf(`Extract only objective, verifiable factual statements from the article below.

Rules:
- One atomic fact per line
- Each claim must be checkable against credible sources on its own
- No opinions, speculation or inferences
- No duplicates and no numbering
- If the article has no verifiable claims, answer exactly: %s

Article:
%s

Claims:`, NoClaims, article),
	}
}

// StancePrompt asks for a single stance label
func StancePrompt(claim, evidence string) CompletionRequest {
	return CompletionRequest{
		System: systemFactChecker,
		Prompt: fmt.Sprintf(`Decide how the EVIDENCE relates to the CLAIM.

- support: the evidence confirms the claim, even if worded differently
- contradict: the evidence disproves the claim
- unrelated: the evidence is not relevant to the claim

Judge meaning, not wording. Answer with one word: support, contradict, or unrelated.

CLAIM: %s
EVIDENCE: %s

Answer:`, claim, evidence),
		MaxTokens: 8,
	}
}

// StanceRationalePrompt asks for a stance label plus a one-sentence reason
func StanceRationalePrompt(claim, evidence string) CompletionRequest {
	return CompletionRequest{
		System: systemFactChecker,
		Prompt: fmt.Sprintf(`Decide how the EVIDENCE relates to the CLAIM: support, contradict, or unrelated.
Judge meaning, not wording.

CLAIM: %s
EVIDENCE: %s

Answer in exactly two lines:
Verdict: <support|contradict|unrelated>
Explanation: <one sentence>`, claim, evidence),
		MaxTokens: 120,
	}
}

// SourceScorePrompt asks for a 1-5 reliability rating of a domain
func SourceScorePrompt(sourceType, domain string) CompletionRequest {
	return CompletionRequest{
		System: systemFactChecker,
		Prompt: fmt.Sprintf(`Rate the factual reliability of the source %q on a scale from 1 (very low) to 5 (very high).
Established institutions and wire services rate 5; anonymous, unfamiliar or social sites rate 1.
Reply with the number only.

Source type: %s
Source: %s
Score:`, domain, sourceType, domain),
		MaxTokens: 8,
	}
}

// AggregationPrompt asks for one final 1-5 credibility score
func AggregationPrompt(supportScore, sourceScore float64, stance string) CompletionRequest {
	return CompletionRequest{
		System: systemFactChecker,
		Prompt: fmt.Sprintf(`Combine the signals below into a final credibility score for a news claim,
a single number from 1 (unreliable) to 5 (highly credible).
Weight "support" highest, "contradict" lowest and "unrelated" low. Reply with the number only.

Support score: %g
Source score: %g
Verdict: %s
Final score:`, supportScore, sourceScore, stance),
		MaxTokens: 8,
	}
}
