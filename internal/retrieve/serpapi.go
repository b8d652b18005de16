package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
)

// SerpAPI searches the live web through serpapi.com
type SerpAPI struct {
	apiKey     string
	endpoint   string
	engine     string
	numResults int
	client     *http.Client
}

// NewSerpAPI creates a web search retriever
func NewSerpAPI(cfg model.SerpAPIConfig, httpCfg model.HTTPConfig) *SerpAPI {
	timeout := httpCfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &SerpAPI{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		engine:     cfg.Engine,
		numResults: cfg.NumResults,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
	}
}

// Name returns the source name
func (s *SerpAPI) Name() string {
	return model.SourceWeb
}

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Retrieve returns the organic results for claim in search order
func (s *SerpAPI) Retrieve(ctx context.Context, claim string) ([]model.EvidenceItem, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("serpapi: api key not set")
	}

	q := url.Values{}
	q.Set("q", claim)
	q.Set("api_key", s.apiKey)
	if s.engine != "" {
		q.Set("engine", s.engine)
	}
	if s.numResults > 0 {
		q.Set("num", strconv.Itoa(s.numResults))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("serpapi: read response: %w", err)
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("serpapi: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("serpapi: decode response: %w", err)
	}
	if strings.Contains(parsed.Error, "hasn't returned any results") {
		return []model.EvidenceItem{}, nil
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", parsed.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi: status %d", resp.StatusCode)
	}

	items := make([]model.EvidenceItem, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		item := model.NewEvidenceItem(r.Link, r.Snippet, model.OriginWeb)
		item.Title = r.Title
		items = append(items, item)
	}
	return items, nil
}
