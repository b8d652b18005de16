package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"go.uber.org/zap"
)

// ErrEmptyInput is returned when the claim or evidence text is empty
var ErrEmptyInput = errors.New("claim and evidence must be non-empty")

// NoExplanation is the rationale used when the answer carries none
const NoExplanation = "No explanation provided"

// Judgement is a normalized stance answer
type Judgement struct {
	Stance    model.Stance
	Rationale string // Only set by ClassifyWithRationale
	Fallback  string // Why the default was applied; empty for a valid label
}

// StanceClassifier maps (claim, evidence) pairs to a stance through the
// fact verification inference task. Malformed answers and failed calls
// become unrelated; they are logged and counted, never returned.
type StanceClassifier struct {
	provider llm.Provider
	logger   *zap.Logger
	recorder metrics.Recorder
}

// NewStanceClassifier creates a stance classifier
func NewStanceClassifier(provider llm.Provider, logger *zap.Logger, recorder metrics.Recorder) *StanceClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StanceClassifier{provider: provider, logger: logger, recorder: metrics.OrNop(recorder)}
}

// Classify returns the stance of evidence toward claim. Errors are limited
// to ErrEmptyInput and cancellation of ctx.
func (c *StanceClassifier) Classify(ctx context.Context, claim, evidence string) (Judgement, error) {
	if err := checkInput(claim, evidence); err != nil {
		return Judgement{Stance: model.StanceUnrelated}, err
	}

	text, err := llm.Complete(ctx, c.provider, llm.StancePrompt(claim, evidence))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Judgement{Stance: model.StanceUnrelated}, fmt.Errorf("classify stance: %w", ctxErr)
		}
		return c.fallback("transport", text, err), nil
	}

	stance, ok := model.ParseStance(text)
	if !ok {
		return c.fallback("invalid_label", text, nil), nil
	}
	return Judgement{Stance: stance}, nil
}

// ClassifyWithRationale asks for a "Verdict:" line and an "Explanation:"
// line. Each defaults independently when missing or invalid.
func (c *StanceClassifier) ClassifyWithRationale(ctx context.Context, claim, evidence string) (Judgement, error) {
	if err := checkInput(claim, evidence); err != nil {
		return Judgement{Stance: model.StanceUnrelated, Rationale: NoExplanation}, err
	}

	text, err := llm.Complete(ctx, c.provider, llm.StanceRationalePrompt(claim, evidence))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Judgement{Stance: model.StanceUnrelated, Rationale: NoExplanation}, fmt.Errorf("classify stance: %w", ctxErr)
		}
		j := c.fallback("transport", text, err)
		j.Rationale = NoExplanation
		return j, nil
	}

	verdict, rationale := ParseRationale(text)
	j := Judgement{Stance: model.StanceUnrelated, Rationale: rationale}

	stance, ok := model.ParseStance(verdict)
	if !ok {
		fb := c.fallback("invalid_label", verdict, nil)
		j.Fallback = fb.Fallback
		return j, nil
	}
	j.Stance = stance
	return j, nil
}

func (c *StanceClassifier) fallback(reason, raw string, err error) Judgement {
	fields := []zap.Field{
		zap.String("adapter", "stance"),
		zap.String("reason", reason),
		zap.String("raw", clip(raw, 80)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.logger.Warn("stance answer rejected, defaulting to unrelated", fields...)
	c.recorder.AdapterFallback("stance", reason)

	return Judgement{Stance: model.StanceUnrelated, Fallback: reason}
}

// ParseRationale extracts the verdict and explanation lines of a two-line
// answer. Prefixes are case-insensitive; a missing explanation yields
// NoExplanation and a missing verdict yields "".
func ParseRationale(text string) (verdict, explanation string) {
	explanation = NoExplanation

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)

		switch {
		case strings.HasPrefix(lower, "verdict:"):
			verdict = strings.TrimSpace(line[len("verdict:"):])
		case strings.HasPrefix(lower, "explanation:"):
			if e := strings.TrimSpace(line[len("explanation:"):]); e != "" {
				explanation = e
			}
		}
	}
	return verdict, explanation
}

func checkInput(claim, evidence string) error {
	if strings.TrimSpace(claim) == "" || strings.TrimSpace(evidence) == "" {
		return ErrEmptyInput
	}
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
