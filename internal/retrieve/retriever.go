// Package retrieve gathers evidence for a claim from web search and a
// vector-store knowledge base, and optionally enriches empty snippets by
// fetching the source page.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/model"
	"go.uber.org/zap"
)

// Retriever returns evidence for one claim. An empty result is valid.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, claim string) ([]model.EvidenceItem, error)
}

// Multi concatenates the results of several retrievers in order. A failing
// source is logged and skipped; the call fails only when every source fails.
type Multi struct {
	sources []Retriever
	logger  *zap.Logger
}

// NewMulti creates a composite retriever
func NewMulti(logger *zap.Logger, sources ...Retriever) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{sources: sources, logger: logger}
}

// Name returns the composite name
func (m *Multi) Name() string {
	return "multi"
}

// Retrieve queries every source sequentially
func (m *Multi) Retrieve(ctx context.Context, claim string) ([]model.EvidenceItem, error) {
	if len(m.sources) == 0 {
		return nil, errors.New("no evidence sources configured")
	}

	var (
		items []model.EvidenceItem
		errs  []error
	)
	for _, src := range m.sources {
		found, err := src.Retrieve(ctx, claim)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Warn("evidence source failed",
				zap.String("source", src.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		m.logger.Debug("evidence retrieved",
			zap.String("source", src.Name()),
			zap.Int("items", len(found)))
		items = append(items, found...)
	}

	if len(errs) == len(m.sources) {
		return nil, errors.Join(errs...)
	}
	if items == nil {
		items = []model.EvidenceItem{}
	}
	return items, nil
}

// Cached memoizes another retriever's results per (source, claim)
type Cached struct {
	next  Retriever
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps next with a cache
func NewCached(next Retriever, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

// Name returns the wrapped retriever's name
func (c *Cached) Name() string {
	return c.next.Name()
}

// Retrieve returns a cached result or queries and stores one. Failures are
// not cached.
func (c *Cached) Retrieve(ctx context.Context, claim string) ([]model.EvidenceItem, error) {
	key := cache.Key("evidence", c.next.Name(), claim)

	var items []model.EvidenceItem
	if cache.GetJSON(c.cache, key, &items) {
		return items, nil
	}

	items, err := c.next.Retrieve(ctx, claim)
	if err != nil {
		return nil, err
	}
	_ = cache.SetJSON(c.cache, key, items, c.ttl)
	return items, nil
}
