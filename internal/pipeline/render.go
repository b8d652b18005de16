package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Renderer writes verification results as JSON, Markdown and a terminal
// summary
type Renderer struct{}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// WriteJSON encodes v as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// RenderJSON writes v to path
func (r *Renderer) RenderJSON(v any, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, v) })
}

// RenderMarkdown writes the Markdown report of results to path
func (r *Renderer) RenderMarkdown(results []*model.VerificationResult, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown(results...))
		return err
	})
}

// Markdown renders one section per result
func (r *Renderer) Markdown(results ...*model.VerificationResult) string {
	var b strings.Builder
	b.WriteString("# Claim Verification Report\n")

	for _, res := range results {
		fmt.Fprintf(&b, "\n## Claim\n\n> %s\n\n", res.Claim)
		fmt.Fprintf(&b, "| | |\n|---|---|\n")
		fmt.Fprintf(&b, "| Stance | **%s** |\n", res.Stance)
		fmt.Fprintf(&b, "| Final credibility | %.2f / 5 |\n", res.FinalCredibility)
		fmt.Fprintf(&b, "| Source credibility | %.2f / 5 |\n", res.SourceCredibility)
		fmt.Fprintf(&b, "| Best source | [%s](%s) |\n", res.BestSourceDomain, res.BestEvidence.URL)

		if res.BestEvidence.Snippet != "" {
			fmt.Fprintf(&b, "\n**Evidence:** %s\n", oneLine(res.BestEvidence.Snippet))
		}

		if len(res.AllConsideredSources) > 0 {
			b.WriteString("\n### Sources considered\n\n| # | Domain | Stance | Trusted |\n|---|---|---|---|\n")
			for i, s := range res.AllConsideredSources {
				trusted := ""
				if s.Trusted {
					trusted = "yes"
				}
				fmt.Fprintf(&b, "| %d | [%s](%s) | %s | %s |\n", i+1, s.SourceDomain, s.URL, s.Stance, trusted)
			}
		}

		if e := res.Explanation; e != nil {
			b.WriteString("\n### Explanation\n\n")
			fmt.Fprintf(&b, "- Claims: %s\n", e.ClaimExtraction.Extraction)
			fmt.Fprintf(&b, "- Evidence: %d found, %d filtered, %d used\n",
				e.EvidenceRetrieval.TotalSourcesFound,
				e.EvidenceRetrieval.SocialPlatformsFiltered,
				e.EvidenceRetrieval.ValidNewsSources)
			fmt.Fprintf(&b, "- Selection: %s\n", e.BestEvidenceSelection.Reason)
			if e.BestEvidenceSelection.StanceExplanation != "" {
				fmt.Fprintf(&b, "- Stance: %s\n", e.BestEvidenceSelection.StanceExplanation)
			}
			fmt.Fprintf(&b, "- %s\n", e.SourceCredibility.Explanation)
			fmt.Fprintf(&b, "- %s\n", e.FinalCalculation.Explanation)
			fmt.Fprintf(&b, "\n```\n%s\n```\n", e.Synthesis.FinalReasoning)
		}
	}
	return b.String()
}

// RenderSummary prints a short human-readable summary
func (r *Renderer) RenderSummary(w io.Writer, res *model.VerificationResult) {
	fmt.Fprintf(w, "Claim:              %s\n", res.Claim)
	fmt.Fprintf(w, "Stance:             %s\n", res.Stance)
	fmt.Fprintf(w, "Best source:        %s (%s)\n", res.BestSourceDomain, res.BestEvidence.URL)
	fmt.Fprintf(w, "Source credibility: %.2f / 5\n", res.SourceCredibility)
	fmt.Fprintf(w, "Final credibility:  %.2f / 5\n", res.FinalCredibility)
	if res.Explanation != nil {
		fmt.Fprintf(w, "Verdict:            %s (%.2f)\n", res.Explanation.Synthesis.FinalVerdict, res.Explanation.Synthesis.FinalScore)
	}
	if n := len(res.Claims); n > 1 {
		fmt.Fprintf(w, "(%d claims extracted; use --all-claims to verify each)\n", n)
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
