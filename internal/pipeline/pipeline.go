// Package pipeline orchestrates claim verification: extract claims,
// retrieve and filter evidence, classify stances, select the best evidence,
// score its source and aggregate a final credibility score.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/score"
	"github.com/ppiankov/claimcheck/internal/validate"
	"github.com/ppiankov/claimcheck/internal/verify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/ppiankov/claimcheck/internal/pipeline"

// ClaimExtractor turns an article into claims. An empty result is valid.
type ClaimExtractor interface {
	Extract(ctx context.Context, article string) ([]model.Claim, error)
}

// EvidenceRetriever returns evidence for one claim
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, claim string) ([]model.EvidenceItem, error)
}

// StanceClassifier labels evidence against a claim
type StanceClassifier interface {
	Classify(ctx context.Context, claim, evidence string) (verify.Judgement, error)
	ClassifyWithRationale(ctx context.Context, claim, evidence string) (verify.Judgement, error)
}

// SourceAssessor rates a source domain
type SourceAssessor interface {
	Assess(ctx context.Context, domain string) (model.SourceAssessment, error)
}

// ScoreAggregator combines the support and source scores
type ScoreAggregator interface {
	Aggregate(ctx context.Context, supportScore, sourceScore float64, stance model.Stance) (model.FinalCalculation, error)
}

// ImageReader extracts text from images
type ImageReader interface {
	Extract(ctx context.Context, image []byte, filename string) (string, error)
	ExtractURL(ctx context.Context, imageURL string) (string, error)
}

// SnippetEnricher fills empty evidence snippets
type SnippetEnricher interface {
	Enrich(ctx context.Context, items []model.EvidenceItem) ([]model.EvidenceItem, int)
}

// Deps are the collaborators of a pipeline. OCR and Enricher are optional.
type Deps struct {
	Extractor  ClaimExtractor
	Retriever  EvidenceRetriever
	Filter     *validate.EvidenceFilter
	Trust      score.TrustChecker
	Classifier StanceClassifier
	Source     SourceAssessor
	Aggregator ScoreAggregator
	OCR        ImageReader
	Enricher   SnippetEnricher
}

// Options tune a pipeline
type Options struct {
	StanceWorkers int                // Concurrent stance classifications per run
	Weights       map[string]float64 // Synthesis weight per agent
	Logger        *zap.Logger
	Recorder      metrics.Recorder
	Tracer        trace.Tracer // Defaults to the global provider's tracer
}

// Pipeline runs verifications. It holds no per-run state, so one value
// serves concurrent runs.
type Pipeline struct {
	deps     Deps
	selector *score.Selector
	workers  int
	weights  map[string]float64
	logger   *zap.Logger
	recorder metrics.Recorder
	tracer   trace.Tracer
}

// New creates a pipeline
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: claim extractor is required")
	case deps.Retriever == nil:
		return nil, errors.New("pipeline: evidence retriever is required")
	case deps.Classifier == nil:
		return nil, errors.New("pipeline: stance classifier is required")
	case deps.Source == nil:
		return nil, errors.New("pipeline: source assessor is required")
	case deps.Aggregator == nil:
		return nil, errors.New("pipeline: score aggregator is required")
	}
	if deps.Filter == nil {
		deps.Filter = validate.NewEvidenceFilter(model.DefaultConfig().Filter.DenyList, validate.DefaultMaxSources)
	}

	if opts.StanceWorkers <= 0 {
		opts.StanceWorkers = 5
	}
	if opts.Weights == nil {
		opts.Weights = model.DefaultConfig().Synthesis.Weights
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	return &Pipeline{
		deps:     deps,
		selector: score.NewSelector(deps.Trust),
		workers:  opts.StanceWorkers,
		weights:  opts.Weights,
		logger:   opts.Logger,
		recorder: metrics.OrNop(opts.Recorder),
		tracer:   opts.Tracer,
	}, nil
}

// SupportScore maps the selected stance to the evidence-support score
// passed to aggregation: support is 4, anything else 1
func SupportScore(s model.Stance) float64 {
	if s == model.StanceSupport {
		return 4
	}
	return 1
}

// VerifyText verifies the first claim of text with an explanation bundle
func (p *Pipeline) VerifyText(ctx context.Context, text string) (*model.VerificationResult, error) {
	return p.Verify(ctx, text, true)
}

// Verify extracts claims from text and verifies the first one. Failures
// are *InputFailure, *UnexpectedFailure or a wrapped context error.
func (p *Pipeline) Verify(ctx context.Context, text string, explain bool) (result *model.VerificationResult, err error) {
	defer func() { p.finish(err) }()

	claims, err := p.extractClaims(ctx, text)
	if err != nil {
		return nil, err
	}
	return p.verifyClaim(ctx, claims, claims[0], explain)
}

// VerifyAllClaims verifies every extracted claim in order. Extraction
// failures abort; a claim whose own run fails is skipped and reported in
// the joined error alongside the results that succeeded.
func (p *Pipeline) VerifyAllClaims(ctx context.Context, text string, explain bool) ([]*model.VerificationResult, error) {
	claims, err := p.extractClaims(ctx, text)
	if err != nil {
		p.finish(err)
		return nil, err
	}

	results := make([]*model.VerificationResult, 0, len(claims))
	var errs []error
	for _, claim := range claims {
		res, err := p.verifyClaim(ctx, claims, claim, explain)
		p.finish(err)
		if err != nil {
			if ctx.Err() != nil {
				return results, err
			}
			errs = append(errs, fmt.Errorf("claim %d: %w", claim.Index+1, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// VerifyImage reads text from an image and verifies its first claim
func (p *Pipeline) VerifyImage(ctx context.Context, image []byte, filename string, explain bool) (*model.VerificationResult, error) {
	return p.verifyOCR(ctx, explain, func(ctx context.Context) (string, error) {
		return p.deps.OCR.Extract(ctx, image, filename)
	})
}

// VerifyImageURL reads text from a remote image and verifies its first claim
func (p *Pipeline) VerifyImageURL(ctx context.Context, imageURL string, explain bool) (*model.VerificationResult, error) {
	return p.verifyOCR(ctx, explain, func(ctx context.Context) (string, error) {
		return p.deps.OCR.ExtractURL(ctx, imageURL)
	})
}

func (p *Pipeline) verifyOCR(ctx context.Context, explain bool, read func(context.Context) (string, error)) (*model.VerificationResult, error) {
	if p.deps.OCR == nil {
		err := &UnexpectedFailure{State: StateReadImage, Err: errors.New("image reading is not configured")}
		p.finish(err)
		return nil, err
	}

	var text string
	err := p.stage(ctx, StateReadImage, func(ctx context.Context) error {
		var err error
		text, err = read(ctx)
		switch {
		case err != nil:
			return p.failure(ctx, StateReadImage, err)
		case text == "":
			return &InputFailure{State: StateReadImage, Err: ErrNoTextExtracted}
		}
		return nil
	})
	if err != nil {
		p.finish(err)
		return nil, err
	}
	return p.Verify(ctx, text, explain)
}

func (p *Pipeline) extractClaims(ctx context.Context, text string) ([]model.Claim, error) {
	var claims []model.Claim
	err := p.stage(ctx, StateExtractClaims, func(ctx context.Context) error {
		var err error
		claims, err = p.deps.Extractor.Extract(ctx, text)
		if err != nil {
			return p.failure(ctx, StateExtractClaims, err)
		}
		if len(claims) == 0 {
			return &InputFailure{State: StateExtractClaims, Err: ErrNoClaimsExtracted}
		}
		return nil
	})
	return claims, err
}

// run carries the accumulated outputs of one claim's states
type run struct {
	claims     []model.Claim
	claim      model.Claim
	explain    bool
	found      int
	filtered   validate.FilterResult
	enriched   int
	verdicts   []model.SourceVerdict
	judgements []verify.Judgement
	selection  score.Selection
	source     model.SourceAssessment
	final      model.FinalCalculation
}

func (p *Pipeline) verifyClaim(ctx context.Context, claims []model.Claim, claim model.Claim, explain bool) (*model.VerificationResult, error) {
	r := &run{claims: claims, claim: claim, explain: explain}

	steps := []struct {
		state State
		fn    func(context.Context, *run) error
	}{
		{StateRetrieveEvidence, p.retrieveEvidence},
		{StateFilterEvidence, p.filterEvidence},
		{StateClassifyAndSelect, p.classifyAndSelect},
		{StateScoreSource, p.scoreSource},
		{StateAggregate, p.aggregate},
	}

	for _, step := range steps {
		if err := p.stage(ctx, step.state, func(ctx context.Context) error { return step.fn(ctx, r) }); err != nil {
			return nil, err
		}
	}

	var result *model.VerificationResult
	err := p.stage(ctx, StateBuildResult, func(context.Context) error {
		result = p.buildResult(r)
		return nil
	})
	return result, err
}

func (p *Pipeline) retrieveEvidence(ctx context.Context, r *run) error {
	items, err := p.deps.Retriever.Retrieve(ctx, r.claim.Text)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", StateRetrieveEvidence, ctx.Err())
		}
		p.logger.Warn("evidence retrieval failed", zap.Error(err))
		return &InputFailure{State: StateRetrieveEvidence, Err: ErrNoValidEvidence, Cause: err}
	}
	r.found = len(items)
	r.filtered = validate.FilterResult{Kept: items}
	return nil
}

func (p *Pipeline) filterEvidence(ctx context.Context, r *run) error {
	r.filtered = p.deps.Filter.Filter(r.filtered.Kept)
	p.recorder.EvidenceFiltered(r.filtered.Skipped)

	if len(r.filtered.Kept) == 0 {
		return &InputFailure{State: StateFilterEvidence, Err: ErrNoValidEvidence}
	}

	if p.deps.Enricher != nil {
		r.filtered.Kept, r.enriched = p.deps.Enricher.Enrich(ctx, r.filtered.Kept)
	}

	p.logger.Debug("evidence filtered",
		zap.Int("found", r.found),
		zap.Int("skipped", r.filtered.Skipped),
		zap.Int("kept", len(r.filtered.Kept)))
	return nil
}

// classifyAndSelect classifies every kept item concurrently, writing each
// judgement at its item's index so the selector sees retrieval order
func (p *Pipeline) classifyAndSelect(ctx context.Context, r *run) error {
	items := r.filtered.Kept
	judgements := make([]verify.Judgement, len(items))
	errs := make([]error, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, item := range items {
		g.Go(func() error {
			classify := p.deps.Classifier.Classify
			if r.explain {
				classify = p.deps.Classifier.ClassifyWithRationale
			}

			j, err := classify(gctx, r.claim.Text, item.Snippet)
			if err != nil && !errors.Is(err, verify.ErrEmptyInput) {
				return err
			}
			judgements[i], errs[i] = j, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return p.failure(ctx, StateClassifyAndSelect, err)
	}

	cands := make([]score.Candidate, len(items))
	verdicts := make([]model.SourceVerdict, len(items))
	for i, item := range items {
		cands[i] = score.Candidate{Item: item, Stance: judgements[i].Stance, Classified: errs[i] == nil}
		verdicts[i] = model.SourceVerdict{
			URL:          item.URL,
			Snippet:      item.Snippet,
			SourceDomain: item.SourceDomain,
			Stance:       judgements[i].Stance,
			Rationale:    judgements[i].Rationale,
			Trusted:      p.deps.Trust != nil && p.deps.Trust.IsTrusted(item.SourceDomain),
			Classified:   errs[i] == nil,
		}
		if errs[i] != nil {
			verdicts[i].Error = errs[i].Error()
		}
	}

	sel, err := p.selector.Select(cands)
	if err != nil {
		return &UnexpectedFailure{State: StateClassifyAndSelect, Err: err}
	}
	if sel.Fallback {
		p.logger.Warn("no evidence could be classified, using first source as unrelated",
			zap.String("url", sel.Item.URL))
		p.recorder.AdapterFallback("selector", "no_classified_evidence")
	}

	r.judgements = judgements
	r.verdicts = verdicts
	r.selection = sel
	return nil
}

func (p *Pipeline) scoreSource(ctx context.Context, r *run) error {
	a, err := p.deps.Source.Assess(ctx, r.selection.Item.SourceDomain)
	if err != nil {
		return p.failure(ctx, StateScoreSource, err)
	}
	a.Score = score.Clamp(a.Score)
	r.source = a
	return nil
}

func (p *Pipeline) aggregate(ctx context.Context, r *run) error {
	calc, err := p.deps.Aggregator.Aggregate(ctx, SupportScore(r.selection.Stance), r.source.Score, r.selection.Stance)
	if err != nil {
		return p.failure(ctx, StateAggregate, err)
	}
	calc.FinalScore = score.Clamp(calc.FinalScore)
	r.final = calc
	return nil
}

// stage runs fn inside a span and records its duration
func (p *Pipeline) stage(ctx context.Context, state State, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", state, err)
	}

	ctx, span := p.tracer.Start(ctx, "pipeline."+string(state))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.recorder.StageDuration(string(state), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("claimcheck.outcome", Outcome(err)))
		return err
	}
	p.logger.Debug("stage complete", zap.String("stage", string(state)), zap.Duration("took", time.Since(start)))
	return nil
}

// failure classifies a collaborator error: cancellation passes through
// wrapped, anything else is unexpected
func (p *Pipeline) failure(ctx context.Context, state State, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", state, ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", state, err)
	}
	return &UnexpectedFailure{State: state, Err: err}
}

func (p *Pipeline) finish(err error) {
	p.recorder.PipelineRun(Outcome(err))

	var input *InputFailure
	var unexpected *UnexpectedFailure
	switch {
	case errors.As(err, &input):
		p.logger.Info("verification ended without a result",
			zap.String("state", string(input.State)),
			zap.Error(err))
	case errors.As(err, &unexpected):
		p.logger.Error("verification failed",
			zap.String("state", string(unexpected.State)),
			zap.Error(err))
	}
}
