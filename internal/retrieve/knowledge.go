package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// Knowledge-base object properties
const (
	fieldContent = "content"
	fieldURL     = "url"
	fieldSource  = "source"
)

// KnowledgeBase retrieves evidence from a Weaviate class of news articles
// by semantic similarity to the claim
type KnowledgeBase struct {
	client  *weaviate.Client
	class   string
	maxDocs int
}

// NewKnowledgeBase connects to Weaviate
func NewKnowledgeBase(cfg model.WeaviateConfig) (*KnowledgeBase, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("weaviate host not set")
	}

	wcfg := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if wcfg.Scheme == "" {
		wcfg.Scheme = "http"
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	maxDocs := cfg.MaxDocs
	if maxDocs <= 0 {
		maxDocs = 3
	}
	return &KnowledgeBase{client: client, class: cfg.Class, maxDocs: maxDocs}, nil
}

// Name returns the source name
func (k *KnowledgeBase) Name() string {
	return model.SourceKnowledgeBase
}

// Retrieve runs a nearText search for claim
func (k *KnowledgeBase) Retrieve(ctx context.Context, claim string) ([]model.EvidenceItem, error) {
	nearText := k.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{claim})

	fields := []graphql.Field{
		{Name: fieldContent},
		{Name: fieldURL},
		{Name: fieldSource},
	}

	result, err := k.client.GraphQL().Get().
		WithClassName(k.class).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(k.maxDocs).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	return parseKnowledgeResults(result, k.class, k.maxDocs)
}

// parseKnowledgeResults reads Data["Get"][class] into evidence items. When
// an object has no url, its source property stands in as the URL.
func parseKnowledgeResults(result *models.GraphQLResponse, class string, maxDocs int) ([]model.EvidenceItem, error) {
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("search error: %s", result.Errors[0].Message)
	}

	items := []model.EvidenceItem{}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return items, nil
	}
	objects, ok := data[class].([]interface{})
	if !ok {
		return items, nil
	}

	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue // skip malformed objects
		}

		link := getString(m, fieldURL)
		if link == "" {
			link = getString(m, fieldSource)
		}
		items = append(items, model.NewEvidenceItem(link, strings.TrimSpace(getString(m, fieldContent)), model.OriginKnowledgeBase))

		if maxDocs > 0 && len(items) == maxDocs {
			break
		}
	}
	return items, nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
