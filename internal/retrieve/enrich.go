package retrieve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/extract"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
	"go.uber.org/zap"
)

// Enricher fills empty evidence snippets from the source page. Pages are
// fetched politely: robots.txt is honoured (when a checker is set) and
// requests are rate limited per domain.
type Enricher struct {
	fetcher  *Fetcher
	robots   *util.RobotsChecker
	limiter  *worker.Limiter
	maxChars int
	logger   *zap.Logger
}

// NewEnricher creates an enricher. A nil robots checker skips robots.txt.
func NewEnricher(fetcher *Fetcher, robots *util.RobotsChecker, limiter *worker.Limiter, maxChars int, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxChars <= 0 {
		maxChars = 500
	}
	return &Enricher{fetcher: fetcher, robots: robots, limiter: limiter, maxChars: maxChars, logger: logger}
}

// NewEnricherFromConfig wires a fetcher, robots checker and limiter from config
func NewEnricherFromConfig(cfg model.EnrichmentConfig, httpCfg model.HTTPConfig, logger *zap.Logger) *Enricher {
	fetcher := NewFetcher(httpCfg.Timeout, httpCfg.UserAgent, httpCfg.MaxBodyBytes, httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy)

	var robots *util.RobotsChecker
	if cfg.RespectRobots {
		robots = util.NewRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout)
	}

	limiter := worker.NewLimiter(cfg.DomainRPS, cfg.DomainBurst)
	for _, dr := range cfg.DomainRates {
		limiter.SetDomainRate(strings.ToLower(dr.Domain), dr.RPS, cfg.DomainBurst)
	}

	return NewEnricher(fetcher, robots, limiter, cfg.MaxChars, logger)
}

// Enrich returns a copy of items where empty snippets are replaced by the
// beginning of the page's visible text, and the number of items changed.
// Failures leave the snippet empty.
func (e *Enricher) Enrich(ctx context.Context, items []model.EvidenceItem) ([]model.EvidenceItem, int) {
	out := make([]model.EvidenceItem, len(items))
	copy(out, items)

	enriched := 0
	for i := range out {
		if strings.TrimSpace(out[i].Snippet) != "" || out[i].URL == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		snippet, err := e.snippet(ctx, out[i].URL)
		if err != nil {
			e.logger.Debug("snippet enrichment skipped",
				zap.String("url", out[i].URL),
				zap.Error(err))
			continue
		}
		out[i].Snippet = snippet
		enriched++
	}
	return out, enriched
}

func (e *Enricher) snippet(ctx context.Context, rawURL string) (string, error) {
	var crawlDelay time.Duration
	if e.robots != nil {
		allowed, delay, err := e.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", fmt.Errorf("disallowed by robots.txt")
		}
		crawlDelay = delay
	}

	if e.limiter != nil {
		if err := e.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
			return "", err
		}
	}

	text, err := e.fetcher.FetchText(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("no visible text")
	}
	return extract.Truncate(text, e.maxChars), nil
}

// articleReaders is shared by every fetcher; readers hold no state
var articleReaders = extract.NewReaders()

// FetchText fetches rawURL and returns the article body of the page as
// plain text
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	result, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if !extract.LooksLikeHTML(result.HTML) && !strings.Contains(result.ContentType, "html") {
		return strings.TrimSpace(result.HTML), nil
	}

	pageURL := result.FinalURL
	if pageURL == "" {
		pageURL = rawURL
	}
	return articleReaders.ArticleText(result.HTML, pageURL, result.ContentType)
}
