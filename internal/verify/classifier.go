package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
)

// ClassifierRater rates sources with a finetuned text-Classification model
// served over HTTP. The endpoint receives {"inputs": "<type>: <domain>"} and
// answers with label probabilities, [{label, score}] or [[{label, score}]].
// Labels are "1".."5" or "LABEL_0".."LABEL_4". The rating is the expected
// value over labels, rendered as text for the usual numeric parsing.
type ClassifierRater struct {
	url    string
	token  string
	client *http.Client
}

// ClassifierOptions configures a ClassifierRater
type ClassifierOptions struct {
	URL        string
	Token      string
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// NewClassifierRater creates a classifier-backed rater
func NewClassifierRater(opts ClassifierOptions) *ClassifierRater {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &ClassifierRater{
		url:   opts.URL,
		token: opts.Token,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
			},
		},
	}
}

// Classification is one label probability
type Classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Rate posts the source to the classifier
func (r *ClassifierRater) Rate(ctx context.Context, sourceType, domain string) (string, error) {
	body, err := json.Marshal(map[string]string{"inputs": sourceType + ": " + domain})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("classifier request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	labels, err := decodeClassifications(raw)
	if err != nil {
		return "", err
	}

	rating, err := ExpectedRating(labels)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(rating, 'f', 4, 64), nil
}

func decodeClassifications(raw []byte) ([]Classification, error) {
	var flat []Classification
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}

	var nested [][]Classification
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if len(nested) == 0 {
		return nil, fmt.Errorf("empty classifier response")
	}
	return nested[0], nil
}

// ExpectedRating is Σ rating·p / Σ p over recognised labels
func ExpectedRating(labels []Classification) (float64, error) {
	var sum, total float64
	for _, c := range labels {
		rating, ok := labelRating(c.Label)
		if !ok || c.Score <= 0 {
			continue
		}
		sum += rating * c.Score
		total += c.Score
	}
	if total == 0 {
		return 0, fmt.Errorf("no recognised labels in classifier response")
	}
	return sum / total, nil
}

// labelRating maps "3" to 3 and "LABEL_2" to 3
func labelRating(label string) (float64, bool) {
	label = strings.TrimSpace(label)
	offset := 0
	if rest, ok := strings.CutPrefix(strings.ToUpper(label), "LABEL_"); ok {
		label = rest
		offset = 1
	}

	n, err := strconv.Atoi(label)
	if err != nil {
		return 0, false
	}
	n += offset
	if n < 1 || n > 5 {
		return 0, false
	}
	return float64(n), true
}

// NewRater builds the rater selected by cfg.Backend
func NewRater(cfg model.SourceConfig, httpCfg model.HTTPConfig, provider llm.Provider) (Rater, error) {
	switch cfg.Backend {
	case "", model.SourceBackendLLM:
		if provider == nil {
			return nil, fmt.Errorf("source backend %q needs an inference provider", model.SourceBackendLLM)
		}
		return NewLLMRater(provider), nil
	case model.SourceBackendClassifier:
		if cfg.ClassifierURL == "" {
			return nil, fmt.Errorf("source backend %q needs classifier_url", model.SourceBackendClassifier)
		}
		return NewClassifierRater(ClassifierOptions{
			URL:        cfg.ClassifierURL,
			Token:      cfg.ClassifierToken,
			Timeout:    httpCfg.Timeout,
			HTTPProxy:  httpCfg.HTTPProxy,
			HTTPSProxy: httpCfg.HTTPSProxy,
			NoProxy:    httpCfg.NoProxy,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported source backend: %s", cfg.Backend)
	}
}
