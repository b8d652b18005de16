package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSourceScore is the neutral score used when a rating cannot be parsed
	DefaultSourceScore = 2.5

	// TrustedScore is the lowest score reported as trusted
	TrustedScore = 4.0

	defaultSourceType = "Web"
)

// Rater produces a raw textual 1-5 rating for a source
type Rater interface {
	Rate(ctx context.Context, sourceType, domain string) (string, error)
}

// LLMRater rates sources with a prompted generative model
type LLMRater struct {
	provider llm.Provider
}

// NewLLMRater creates a rater over the scoring inference task
func NewLLMRater(provider llm.Provider) *LLMRater {
	return &LLMRater{provider: provider}
}

// Rate asks the model for a number
func (r *LLMRater) Rate(ctx context.Context, sourceType, domain string) (string, error) {
	return llm.Complete(ctx, r.provider, llm.SourceScorePrompt(sourceType, domain))
}

// SourceScorer is the source credibility adapter. Scores are cached per
// domain and concurrent lookups for one domain share a single rating call.
type SourceScorer struct {
	rater        Rater
	sourceType   string
	defaultScore float64
	cache        *gocache.Cache
	group        singleflight.Group
	logger       *zap.Logger
	recorder     metrics.Recorder
}

// SourceScorerOptions configures a SourceScorer
type SourceScorerOptions struct {
	SourceType   string        // Passed to the rater ("Web")
	DefaultScore float64       // Neutral score on parse failure (2.5)
	CacheTTL     time.Duration // Zero disables caching
	Logger       *zap.Logger
	Recorder     metrics.Recorder
}

// NewSourceScorer creates a scorer over rater
func NewSourceScorer(rater Rater, opts SourceScorerOptions) *SourceScorer {
	if opts.SourceType == "" {
		opts.SourceType = defaultSourceType
	}
	if opts.DefaultScore == 0 {
		opts.DefaultScore = DefaultSourceScore
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &SourceScorer{
		rater:        rater,
		sourceType:   opts.SourceType,
		defaultScore: score.Clamp(opts.DefaultScore),
		logger:       opts.Logger,
		recorder:     metrics.OrNop(opts.Recorder),
	}
	if opts.CacheTTL > 0 {
		s.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return s
}

// Score returns the clamped credibility of domain
func (s *SourceScorer) Score(ctx context.Context, domain string) (float64, error) {
	a, err := s.Assess(ctx, domain)
	return a.Score, err
}

// Assess returns the credibility of domain with its explanation. The
// score is always in [1, 5]; the only error is cancellation of ctx.
// Concurrent lookups of one domain share a rating call that outlives any
// single caller, so one run giving up never fails another.
func (s *SourceScorer) Assess(ctx context.Context, domain string) (model.SourceAssessment, error) {
	key := strings.ToLower(strings.TrimSpace(domain))

	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return assessment(v.(rating)), nil
		}
	}

	if err := ctx.Err(); err != nil {
		return model.SourceAssessment{}, fmt.Errorf("score source %s: %w", domain, err)
	}

	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		r := s.rate(shared, domain)
		if s.cache != nil {
			s.cache.Set(key, r, gocache.DefaultExpiration)
		}
		return r, nil
	})

	select {
	case <-ctx.Done():
		return model.SourceAssessment{}, fmt.Errorf("score source %s: %w", domain, ctx.Err())
	case res := <-ch:
		return assessment(res.Val.(rating)), nil
	}
}

type rating struct {
	score       float64
	usedDefault bool
}

func (s *SourceScorer) rate(ctx context.Context, domain string) rating {
	text, err := s.rater.Rate(ctx, s.sourceType, domain)
	if err != nil {
		s.logger.Warn("source rating failed, using default",
			zap.String("adapter", "source"),
			zap.String("reason", "transport"),
			zap.String("domain", domain),
			zap.Error(err))
		s.recorder.AdapterFallback("source", "transport")
		return rating{score: s.defaultScore, usedDefault: true}
	}

	v, ok := score.ParseScore(text)
	if !ok {
		s.logger.Warn("source rating is not a number, using default",
			zap.String("adapter", "source"),
			zap.String("reason", "parse"),
			zap.String("domain", domain),
			zap.String("raw", clip(text, 80)))
		s.recorder.AdapterFallback("source", "parse")
		return rating{score: s.defaultScore, usedDefault: true}
	}

	if !score.InRange(v) {
		s.logger.Debug("source rating clamped", zap.String("domain", domain), zap.Float64("raw", v))
	}
	return rating{score: score.Clamp(v)}
}

func assessment(r rating) model.SourceAssessment {
	return model.SourceAssessment{
		Score:               r.score,
		Explanation:         fmt.Sprintf("Source credibility: %.1f/5", r.score),
		ContributingFactors: []string{"Domain reputation"},
		IsTrusted:           r.score >= TrustedScore,
		UsedDefault:         r.usedDefault,
	}
}
