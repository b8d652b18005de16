package score

import (
	"context"
	"fmt"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"go.uber.org/zap"
)

// Descriptive split between evidence support and source credibility
const (
	EvidenceSupportPct   = 50.0
	SourceCredibilityPct = 50.0
)

// Aggregator combines the support and source scores into a final credibility
// score through the aggregation inference task
type Aggregator struct {
	provider llm.Provider
	logger   *zap.Logger
	recorder metrics.Recorder
}

// NewAggregator creates an aggregator. A nil provider always uses the mean.
func NewAggregator(provider llm.Provider, logger *zap.Logger, recorder metrics.Recorder) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{provider: provider, logger: logger, recorder: metrics.OrNop(recorder)}
}

// Aggregate returns the final score and its explanation. A non-numeric or
// out-of-range answer, or a failed call, falls back to the mean of the two
// inputs. The only error is cancellation of ctx.
func (a *Aggregator) Aggregate(ctx context.Context, supportScore, sourceScore float64, stance model.Stance) (model.FinalCalculation, error) {
	calc := model.FinalCalculation{
		Breakdown: model.ScoreBreakdown{
			EvidenceQuality:   model.EvidenceQuality{Score: supportScore, Stance: stance},
			SourceCredibility: model.SourceCredibility{Score: sourceScore},
		},
		Attribution: model.ScoreAttribution{
			EvidenceSupportPct:   EvidenceSupportPct,
			SourceCredibilityPct: SourceCredibilityPct,
		},
	}

	final, reason := a.ask(ctx, supportScore, sourceScore, stance)
	if err := ctx.Err(); err != nil {
		return model.FinalCalculation{}, fmt.Errorf("aggregate: %w", err)
	}

	if reason != "" {
		a.recorder.AdapterFallback("aggregation", reason)
		calc.UsedFallback = true
		calc.FinalScore = Clamp(Mean(supportScore, sourceScore))
		calc.Explanation = fmt.Sprintf("Final score %.2f is the mean of evidence support %.1f (%s) and source credibility %.1f",
			calc.FinalScore, supportScore, stance, sourceScore)
		return calc, nil
	}

	calc.FinalScore = Clamp(final)
	calc.Explanation = fmt.Sprintf("Final score %.2f combines evidence support %.1f (%s) with source credibility %.1f",
		calc.FinalScore, supportScore, stance, sourceScore)
	return calc, nil
}

// ask returns the parsed answer, or a non-empty fallback reason
func (a *Aggregator) ask(ctx context.Context, supportScore, sourceScore float64, stance model.Stance) (float64, string) {
	if a.provider == nil {
		return 0, "no_provider"
	}

	text, err := llm.Complete(ctx, a.provider, llm.AggregationPrompt(supportScore, sourceScore, stance.String()))
	if err != nil {
		a.logger.Warn("aggregation call failed, using mean",
			zap.String("adapter", "aggregation"),
			zap.String("reason", "transport"),
			zap.Error(err))
		return 0, "transport"
	}

	v, ok := ParseScore(text)
	if !ok {
		a.logger.Warn("aggregation answer is not a number, using mean",
			zap.String("adapter", "aggregation"),
			zap.String("reason", "parse"),
			zap.String("raw", truncate(text, 80)))
		return 0, "parse"
	}
	if !InRange(v) {
		a.logger.Warn("aggregation answer out of range, using mean",
			zap.String("adapter", "aggregation"),
			zap.String("reason", "out_of_range"),
			zap.Float64("value", v))
		return 0, "out_of_range"
	}
	return v, ""
}

// Mean is the arithmetic mean of the two scores
func Mean(supportScore, sourceScore float64) float64 {
	return (supportScore + sourceScore) / 2
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
