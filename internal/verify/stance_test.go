package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_NormalizesLabels(t *testing.T) {
	tests := map[string]model.Stance{
		"support":               model.StanceSupport,
		"  Support \n":          model.StanceSupport,
		"CONTRADICT":            model.StanceContradict,
		"unrelated":             model.StanceUnrelated,
		`{"content":"support"}`: model.StanceSupport,
	}

	for raw, want := range tests {
		c := NewStanceClassifier(llm.NewMockProvider(raw), nil, nil)
		j, err := c.Classify(context.Background(), "claim", "evidence")
		require.NoError(t, err)
		assert.Equal(t, want, j.Stance, "raw %q", raw)
		assert.Empty(t, j.Fallback, "raw %q", raw)
	}
}

func TestClassify_MalformedBecomesUnrelated(t *testing.T) {
	rec := metrics.NewPrometheus()

	for _, raw := range []string{"supports", "Support.", "yes", "", "support contradict", "I think it supports the claim"} {
		c := NewStanceClassifier(llm.NewMockProvider(raw), nil, rec)
		j, err := c.Classify(context.Background(), "claim", "evidence")
		require.NoError(t, err)
		assert.Equal(t, model.StanceUnrelated, j.Stance, "raw %q", raw)
		assert.Equal(t, "invalid_label", j.Fallback, "raw %q", raw)
	}

	assert.Equal(t, 6.0, testutil.ToFloat64(rec.FallbacksTotal.WithLabelValues("stance", "invalid_label")))
}

func TestClassify_TransportFailureBecomesUnrelated(t *testing.T) {
	p := llm.NewMockProvider("support")
	p.Err = errors.New("connection refused")

	j, err := NewStanceClassifier(p, nil, nil).Classify(context.Background(), "claim", "evidence")
	require.NoError(t, err)
	assert.Equal(t, model.StanceUnrelated, j.Stance)
	assert.Equal(t, "transport", j.Fallback)
}

func TestClassify_EmptyInputFailsFast(t *testing.T) {
	p := llm.NewMockProvider("support")
	c := NewStanceClassifier(p, nil, nil)

	_, err := c.Classify(context.Background(), "claim", "  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = c.Classify(context.Background(), "", "evidence")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, p.Calls(), "provider must not be called")
}

func TestClassify_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStanceClassifier(llm.NewMockProvider("support"), nil, nil).Classify(ctx, "claim", "evidence")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyWithRationale(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		stance    model.Stance
		rationale string
	}{
		{"both lines", "Verdict: support\nExplanation: The agency confirms the launch date.", model.StanceSupport, "The agency confirms the launch date."},
		{"case-insensitive prefixes", "verdict: Contradict\nEXPLANATION: Dates differ.", model.StanceContradict, "Dates differ."},
		{"missing explanation", "Verdict: support", model.StanceSupport, NoExplanation},
		{"missing verdict", "Explanation: Unclear.", model.StanceUnrelated, "Unclear."},
		{"invalid verdict", "Verdict: mostly true\nExplanation: Close enough.", model.StanceUnrelated, "Close enough."},
		{"free text", "It supports the claim.", model.StanceUnrelated, NoExplanation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewStanceClassifier(llm.NewMockProvider(tt.raw), nil, nil)
			j, err := c.ClassifyWithRationale(context.Background(), "claim", "evidence")
			require.NoError(t, err)
			assert.Equal(t, tt.stance, j.Stance)
			assert.Equal(t, tt.rationale, j.Rationale)
		})
	}
}
