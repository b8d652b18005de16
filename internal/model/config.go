package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all claimcheck settings
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Extraction   ExtractionConfig   `yaml:"extraction" mapstructure:"extraction"`
	Retrieval    RetrievalConfig    `yaml:"retrieval" mapstructure:"retrieval"`
	Filter       FilterConfig       `yaml:"filter" mapstructure:"filter"`
	Selection    SelectionConfig    `yaml:"selection" mapstructure:"selection"`
	Source       SourceConfig       `yaml:"source" mapstructure:"source"`
	Synthesis    SynthesisConfig    `yaml:"synthesis" mapstructure:"synthesis"`
	Enrichment   EnrichmentConfig   `yaml:"enrichment" mapstructure:"enrichment"`
	OCR          OCRConfig          `yaml:"ocr" mapstructure:"ocr"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Feedback     FeedbackConfig     `yaml:"feedback" mapstructure:"feedback"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// Inference tasks that can be routed to their own provider/model
const (
	TaskClaimExtraction  = "claim_extraction"
	TaskFactVerification = "fact_verification"
	TaskScoring          = "scoring"
	TaskAggregation      = "aggregation"
)

// LLMConfig configures the default inference provider and per-task overrides
type LLMConfig struct {
	Provider    string                `yaml:"provider" mapstructure:"provider" validate:"required,oneof=openai openrouter groq mistral anthropic claude ollama gemini mock"`
	Model       string                `yaml:"model" mapstructure:"model"`
	BaseURL     string                `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey      string                `yaml:"-" mapstructure:"api_key"` // Never written to disk
	Timeout     time.Duration         `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	MaxTokens   int                   `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gt=0"`
	Temperature float64               `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	Tasks       map[string]TaskConfig `yaml:"tasks,omitempty" mapstructure:"tasks" validate:"dive,keys,oneof=claim_extraction fact_verification scoring aggregation,endkeys"`
}

// TaskConfig overrides the default provider for one inference task.
// Empty fields inherit from LLMConfig.
type TaskConfig struct {
	Provider string `yaml:"provider,omitempty" mapstructure:"provider"`
	Model    string `yaml:"model,omitempty" mapstructure:"model"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey   string `yaml:"-" mapstructure:"api_key"`
}

// ExtractionConfig controls claim extraction
type ExtractionConfig struct {
	MaxClaims    int `yaml:"max_claims" mapstructure:"max_claims" validate:"gte=1"`
	ChunkSize    int `yaml:"chunk_size" mapstructure:"chunk_size" validate:"gte=100"`
	ChunkOverlap int `yaml:"chunk_overlap" mapstructure:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
}

// Evidence sources
const (
	SourceWeb           = "web"
	SourceKnowledgeBase = "knowledge_base"
)

// RetrievalConfig lists the evidence sources to query, in order
type RetrievalConfig struct {
	Sources  []string       `yaml:"sources" mapstructure:"sources" validate:"min=1,dive,oneof=web knowledge_base"`
	SerpAPI  SerpAPIConfig  `yaml:"serpapi" mapstructure:"serpapi"`
	Weaviate WeaviateConfig `yaml:"weaviate" mapstructure:"weaviate"`
}

// SerpAPIConfig configures web search
type SerpAPIConfig struct {
	APIKey     string `yaml:"-" mapstructure:"api_key"`
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	Engine     string `yaml:"engine" mapstructure:"engine"`
	NumResults int    `yaml:"num_results" mapstructure:"num_results" validate:"gte=1"`
}

// WeaviateConfig configures the knowledge-base vector store
type WeaviateConfig struct {
	Host    string `yaml:"host" mapstructure:"host"`
	Scheme  string `yaml:"scheme" mapstructure:"scheme" validate:"oneof=http https"`
	APIKey  string `yaml:"-" mapstructure:"api_key"`
	Class   string `yaml:"class" mapstructure:"class"`
	MaxDocs int    `yaml:"max_docs" mapstructure:"max_docs" validate:"gte=1"`
}

// FilterConfig configures the evidence filter
type FilterConfig struct {
	DenyList   []string `yaml:"deny_list" mapstructure:"deny_list"`
	MaxSources int      `yaml:"max_sources" mapstructure:"max_sources" validate:"gte=1"`
}

// SelectionConfig configures best-evidence selection
type SelectionConfig struct {
	TrustedDomains []string `yaml:"trusted_domains" mapstructure:"trusted_domains"`
}

// Source credibility backends
const (
	SourceBackendLLM        = "llm"
	SourceBackendClassifier = "classifier"
)

// SourceConfig configures the source credibility adapter
type SourceConfig struct {
	Backend         string        `yaml:"backend" mapstructure:"backend" validate:"oneof=llm classifier"`
	SourceType      string        `yaml:"source_type" mapstructure:"source_type"`
	DefaultScore    float64       `yaml:"default_score" mapstructure:"default_score" validate:"gte=1,lte=5"`
	ClassifierURL   string        `yaml:"classifier_url,omitempty" mapstructure:"classifier_url" validate:"required_if=Backend classifier"`
	ClassifierToken string        `yaml:"-" mapstructure:"classifier_token"`
	CacheTTL        time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// Synthesis agent names
const (
	AgentEvidenceSupport   = "evidence_support"
	AgentSourceCredibility = "source_credibility"
	AgentCrossVerification = "cross_verification"
)

// SynthesisConfig holds the explanation synthesis weights per agent
type SynthesisConfig struct {
	Weights map[string]float64 `yaml:"weights" mapstructure:"weights" validate:"dive,gte=0"`
}

// EnrichmentConfig controls fetching pages for evidence without a snippet
type EnrichmentConfig struct {
	Enabled       bool    `yaml:"enabled" mapstructure:"enabled"`
	MaxChars      int     `yaml:"max_chars" mapstructure:"max_chars" validate:"gte=1"`
	RespectRobots bool    `yaml:"respect_robots" mapstructure:"respect_robots"`
	DomainRPS     float64 `yaml:"domain_rps" mapstructure:"domain_rps" validate:"gt=0"`
	DomainBurst   int     `yaml:"domain_burst" mapstructure:"domain_burst" validate:"gte=1"`

	// DomainRates overrides DomainRPS for particular hosts
	DomainRates []DomainRate `yaml:"domain_rates,omitempty" mapstructure:"domain_rates" validate:"dive"`
}

// DomainRate is a per-host fetch rate
type DomainRate struct {
	Domain string  `yaml:"domain" mapstructure:"domain" validate:"required,hostname"`
	RPS    float64 `yaml:"rps" mapstructure:"rps" validate:"gt=0"`
}

// OCRConfig configures image text extraction
type OCRConfig struct {
	APIKey        string        `yaml:"-" mapstructure:"api_key"`
	Endpoint      string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	Language      string        `yaml:"language" mapstructure:"language"`
	Engine        int           `yaml:"engine" mapstructure:"engine" validate:"oneof=1 2 3"`
	Attempts      int           `yaml:"attempts" mapstructure:"attempts" validate:"gte=1"`
	Backoff       time.Duration `yaml:"backoff" mapstructure:"backoff" validate:"gte=0"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	TesseractPath string        `yaml:"tesseract_path,omitempty" mapstructure:"tesseract_path"`
}

// HTTPConfig holds outbound HTTP client settings
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig holds retrieval and scoring cache settings
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ConcurrencyConfig holds worker counts
type ConcurrencyConfig struct {
	StanceWorkers int `yaml:"stance_workers" mapstructure:"stance_workers" validate:"gte=1"`
	BatchWorkers  int `yaml:"batch_workers" mapstructure:"batch_workers" validate:"gte=1"`
}

// RateLimitingConfig bounds request rates to the service and outbound hosts
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=1"`
}

// ServerConfig configures the HTTP transport
type ServerConfig struct {
	Addr          string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	MaxTextLength int           `yaml:"max_text_length" mapstructure:"max_text_length" validate:"gte=1"`
	MaxImageBytes int64         `yaml:"max_image_bytes" mapstructure:"max_image_bytes" validate:"gte=1"`
	ReadTimeout   time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// FeedbackConfig configures the optional JSONL feedback log
type FeedbackConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     60 * time.Second,
			MaxTokens:   512,
			Temperature: 0,
		},
		Extraction: ExtractionConfig{
			MaxClaims:    5,
			ChunkSize:    4000,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			Sources: []string{SourceWeb},
			SerpAPI: SerpAPIConfig{
				Endpoint:   "https://serpapi.com/search",
				Engine:     "google",
				NumResults: 10,
			},
			Weaviate: WeaviateConfig{
				Host:    "localhost:8080",
				Scheme:  "http",
				Class:   "NewsArticle",
				MaxDocs: 3,
			},
		},
		Filter: FilterConfig{
			DenyList: []string{
				"youtube.com", "youtu.be", "instagram.com", "facebook.com",
				"fb.com", "m.facebook.com", "twitter.com", "x.com",
				"reddit.com", "tiktok.com", "pinterest.com", "linkedin.com",
				"snapchat.com", "quora.com", "medium.com", "tumblr.com",
			},
			MaxSources: 5,
		},
		Selection: SelectionConfig{
			TrustedDomains: []string{
				"nasa.gov", "bbc.com", "nytimes.com",
				"reuters.com", "nature.com", "apnews.com",
			},
		},
		Source: SourceConfig{
			Backend:      SourceBackendLLM,
			SourceType:   "Web",
			DefaultScore: 2.5,
			CacheTTL:     24 * time.Hour,
		},
		Synthesis: SynthesisConfig{
			Weights: map[string]float64{
				AgentEvidenceSupport:   0.4,
				AgentSourceCredibility: 0.4,
				AgentCrossVerification: 0.2,
			},
		},
		Enrichment: EnrichmentConfig{
			Enabled:       false,
			MaxChars:      500,
			RespectRobots: true,
			DomainRPS:     1,
			DomainBurst:   2,
		},
		OCR: OCRConfig{
			Endpoint: "https://api.ocr.space/parse/image",
			Language: "eng",
			Engine:   2,
			Attempts: 3,
			Backoff:  2 * time.Second,
			Timeout:  60 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "claimcheck/0.1 (+https://github.com/ppiankov/claimcheck)",
			MaxBodyBytes: 2_000_000,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".claimcheck-cache",
			TTL:     6 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			StanceWorkers: 5,
			BatchWorkers:  4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         10,
		},
		Server: ServerConfig{
			Addr:          ":8000",
			MaxTextLength: 20000,
			MaxImageBytes: 10 << 20,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  3 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Task returns the effective provider settings for one inference task
func (c LLMConfig) Task(name string) LLMConfig {
	out := c
	out.Tasks = nil
	t, ok := c.Tasks[name]
	if !ok {
		return out
	}
	if t.Provider != "" && t.Provider != c.Provider {
		// A different provider never inherits the default's endpoint or key
		out.Provider = t.Provider
		out.Model = ""
		out.BaseURL = ""
		out.APIKey = ""
	}
	if t.Model != "" {
		out.Model = t.Model
	}
	if t.BaseURL != "" {
		out.BaseURL = t.BaseURL
	}
	if t.APIKey != "" {
		out.APIKey = t.APIKey
	}
	return out
}
