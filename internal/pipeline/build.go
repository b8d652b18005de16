package pipeline

import (
	"fmt"
	"os"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/extract"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/ocr"
	"github.com/ppiankov/claimcheck/internal/retrieve"
	"github.com/ppiankov/claimcheck/internal/score"
	"github.com/ppiankov/claimcheck/internal/validate"
	"github.com/ppiankov/claimcheck/internal/verify"
	"go.uber.org/zap"
)

// NewFromConfig wires every collaborator from configuration. Missing
// service keys are read from SERPAPI_API_KEY, WEAVIATE_API_KEY and
// OCR_SPACE_API_KEY.
func NewFromConfig(cfg *model.Config, logger *zap.Logger, recorder metrics.Recorder) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router, err := llm.NewRouterFromConfig(cfg.LLM, cfg.HTTP, logger)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	retriever, err := NewRetrieverFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	rater, err := verify.NewRater(cfg.Source, cfg.HTTP, router.For(model.TaskScoring))
	if err != nil {
		return nil, fmt.Errorf("source scoring: %w", err)
	}

	ocrCfg := cfg.OCR
	if ocrCfg.APIKey == "" {
		ocrCfg.APIKey = os.Getenv("OCR_SPACE_API_KEY")
	}

	deps := Deps{
		Extractor:  extract.NewClaimExtractor(router.For(model.TaskClaimExtraction), cfg.Extraction, logger),
		Retriever:  retriever,
		Filter:     validate.NewEvidenceFilterFromConfig(cfg.Filter),
		Trust:      validate.NewTrustClassifier(cfg.Selection.TrustedDomains),
		Classifier: verify.NewStanceClassifier(router.For(model.TaskFactVerification), logger, recorder),
		Source: verify.NewSourceScorer(rater, verify.SourceScorerOptions{
			SourceType:   cfg.Source.SourceType,
			DefaultScore: cfg.Source.DefaultScore,
			CacheTTL:     cfg.Source.CacheTTL,
			Logger:       logger,
			Recorder:     recorder,
		}),
		Aggregator: score.NewAggregator(router.For(model.TaskAggregation), logger, recorder),
		OCR:        ocr.New(ocrCfg, cfg.HTTP, logger),
	}
	if cfg.Enrichment.Enabled {
		deps.Enricher = retrieve.NewEnricherFromConfig(cfg.Enrichment, cfg.HTTP, logger)
	}

	return New(deps, Options{
		StanceWorkers: cfg.Concurrency.StanceWorkers,
		Weights:       cfg.Synthesis.Weights,
		Logger:        logger,
		Recorder:      recorder,
	})
}

// NewRetrieverFromConfig builds the configured evidence sources in order,
// each behind the result cache when caching is enabled
func NewRetrieverFromConfig(cfg *model.Config, logger *zap.Logger) (*retrieve.Multi, error) {
	var store cache.Cache
	if cfg.Cache.Enabled {
		store = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}

	sources := make([]retrieve.Retriever, 0, len(cfg.Retrieval.Sources))
	for _, name := range cfg.Retrieval.Sources {
		var r retrieve.Retriever
		switch name {
		case model.SourceWeb:
			serp := cfg.Retrieval.SerpAPI
			if serp.APIKey == "" {
				serp.APIKey = os.Getenv("SERPAPI_API_KEY")
			}
			r = retrieve.NewSerpAPI(serp, cfg.HTTP)
		case model.SourceKnowledgeBase:
			wv := cfg.Retrieval.Weaviate
			if wv.APIKey == "" {
				wv.APIKey = os.Getenv("WEAVIATE_API_KEY")
			}
			kb, err := retrieve.NewKnowledgeBase(wv)
			if err != nil {
				return nil, fmt.Errorf("knowledge base: %w", err)
			}
			r = kb
		default:
			return nil, fmt.Errorf("unknown evidence source: %s", name)
		}

		if store != nil {
			r = retrieve.NewCached(r, store, cfg.Cache.TTL)
		}
		sources = append(sources, r)
	}

	return retrieve.NewMulti(logger, sources...), nil
}
