package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"
)

// listMarker matches bullets and numbering models add despite instructions
var listMarker = regexp.MustCompile(`^(?:[-*•]|\d{1,3}[.)])\s+`)

// ClaimExtractor asks an inference provider for the verifiable claims in an article
type ClaimExtractor struct {
	provider  llm.Provider
	maxClaims int
	chunkSize int
	splitter  textsplitter.TextSplitter
	logger    *zap.Logger
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor(provider llm.Provider, cfg model.ExtractionConfig, logger *zap.Logger) *ClaimExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxClaims <= 0 {
		cfg.MaxClaims = 5
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4000
	}

	return &ClaimExtractor{
		provider:  provider,
		maxClaims: cfg.MaxClaims,
		chunkSize: cfg.ChunkSize,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		),
		logger: logger,
	}
}

// Extract returns the claims in article, in order, deduplicated and capped.
// An article without verifiable claims yields an empty slice and no error.
func (e *ClaimExtractor) Extract(ctx context.Context, article string) ([]model.Claim, error) {
	article = strings.TrimSpace(article)
	if article == "" {
		return []model.Claim{}, nil
	}

	chunks := e.chunks(article)

	claims := make([]model.Claim, 0, e.maxClaims)
	seen := make(map[string]bool)

	for i, chunk := range chunks {
		text, err := llm.Complete(ctx, e.provider, llm.ClaimExtractionPrompt(chunk))
		if err != nil {
			return nil, fmt.Errorf("extract claims (chunk %d/%d): %w", i+1, len(chunks), err)
		}

		for _, c := range ParseClaims(text) {
			key := strings.ToLower(c)
			if seen[key] {
				continue
			}
			seen[key] = true
			claims = append(claims, model.Claim{Text: c, Index: len(claims), Chunk: i})
			if len(claims) == e.maxClaims {
				return claims, nil
			}
		}
	}

	e.logger.Debug("claims extracted", zap.Int("claims", len(claims)), zap.Int("chunks", len(chunks)))
	return claims, nil
}

func (e *ClaimExtractor) chunks(article string) []string {
	if len(article) <= e.chunkSize {
		return []string{article}
	}

	chunks, err := e.splitter.SplitText(article)
	if err != nil || len(chunks) == 0 {
		e.logger.Warn("article split failed, using whole text", zap.Error(err))
		return []string{article}
	}
	return chunks
}

// ParseClaims splits a claim-extraction answer into claim strings: one per
// line, list markers stripped, blank lines and the NONE marker dropped
func ParseClaims(text string) []string {
	var claims []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" || strings.EqualFold(line, llm.NoClaims) {
			continue
		}
		claims = append(claims, line)
	}
	return claims
}
