package model

import (
	"testing"
	"time"
)

func TestParseStance(t *testing.T) {
	tests := []struct {
		raw    string
		want   Stance
		wantOK bool
	}{
		{"support", StanceSupport, true},
		{"  Support\n", StanceSupport, true},
		{"CONTRADICT", StanceContradict, true},
		{"unrelated", StanceUnrelated, true},
		{"supports", StanceUnrelated, false},
		{"yes", StanceUnrelated, false},
		{"", StanceUnrelated, false},
		{"support.", StanceUnrelated, false},
		{"Verdict: support", StanceUnrelated, false},
	}

	for _, tt := range tests {
		got, ok := ParseStance(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseStance(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStanceRank(t *testing.T) {
	if !(StanceSupport.Rank() > StanceContradict.Rank() && StanceContradict.Rank() > StanceUnrelated.Rank()) {
		t.Fatal("stance ranks out of order")
	}
	if StanceUnrelated.Rank() <= SentinelRank {
		t.Fatal("sentinel must sit below unrelated")
	}
	if Stance("maybe").Valid() {
		t.Error("unexpected valid stance")
	}
}

func TestSourceDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.nasa.gov/artemis":       "nasa.gov",
		"http://BBC.com/news/1":              "bbc.com",
		"nasa.gov/artemis-i":                 "nasa.gov",
		"www.reuters.com/world":              "reuters.com",
		"https://science.nasa.gov:443/x?y=1": "science.nasa.gov:443",
		"":                                   UnknownDomain,
		"   ":                                UnknownDomain,
		"https://":                           UnknownDomain,
	}

	for in, want := range tests {
		if got := SourceDomain(in); got != want {
			t.Errorf("SourceDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewEvidenceItem(t *testing.T) {
	item := NewEvidenceItem("https://www.apnews.com/a", "text", OriginWeb)
	if item.SourceDomain != "apnews.com" {
		t.Errorf("SourceDomain = %q", item.SourceDomain)
	}
	if item.Origin != OriginWeb {
		t.Errorf("Origin = %q", item.Origin)
	}
}

func TestClaimTexts(t *testing.T) {
	got := ClaimTexts([]Claim{{Text: "a"}, {Text: "b", Index: 1}})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("ClaimTexts = %v", got)
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Filter.MaxSources != 5 {
		t.Errorf("MaxSources = %d, want 5", cfg.Filter.MaxSources)
	}
	if cfg.Source.DefaultScore != 2.5 {
		t.Errorf("DefaultScore = %v, want 2.5", cfg.Source.DefaultScore)
	}
	if cfg.OCR.Attempts != 3 || cfg.OCR.Backoff != 2*time.Second {
		t.Errorf("OCR retry policy = %d/%v", cfg.OCR.Attempts, cfg.OCR.Backoff)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bogus" }},
		{"zero max sources", func(c *Config) { c.Filter.MaxSources = 0 }},
		{"default score out of range", func(c *Config) { c.Source.DefaultScore = 7 }},
		{"classifier without url", func(c *Config) { c.Source.Backend = SourceBackendClassifier }},
		{"unknown retrieval source", func(c *Config) { c.Retrieval.Sources = []string{"carrier-pigeon"} }},
		{"no retrieval source", func(c *Config) { c.Retrieval.Sources = nil }},
		{"unknown task", func(c *Config) { c.LLM.Tasks = map[string]TaskConfig{"summarize": {Model: "x"}} }},
		{"negative weight", func(c *Config) { c.Synthesis.Weights[AgentEvidenceSupport] = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLLMConfigTask(t *testing.T) {
	base := LLMConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "sk-default",
		Tasks: map[string]TaskConfig{
			TaskScoring:          {Model: "gpt-4o"},
			TaskFactVerification: {Provider: "groq", Model: "llama-3.1-8b-instant"},
		},
	}

	scoring := base.Task(TaskScoring)
	if scoring.Provider != "openai" || scoring.Model != "gpt-4o" || scoring.APIKey != "sk-default" {
		t.Errorf("scoring task = %+v", scoring)
	}

	fact := base.Task(TaskFactVerification)
	if fact.Provider != "groq" || fact.Model != "llama-3.1-8b-instant" || fact.APIKey != "" {
		t.Errorf("fact task = %+v", fact)
	}

	agg := base.Task(TaskAggregation)
	if agg.Provider != "openai" || agg.Model != "gpt-4o-mini" || agg.Tasks != nil {
		t.Errorf("aggregation task = %+v", agg)
	}
}
