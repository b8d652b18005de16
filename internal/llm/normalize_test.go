package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "  support \n", "support"},
		{"number", "4.2", "4.2"},
		{"json string", `"contradict"`, "contradict"},
		{"content envelope", `{"content": " unrelated "}`, "unrelated"},
		{"message envelope", `{"message": {"role": "assistant", "content": "support"}}`, "support"},
		{"generated_text list", `[{"generated_text": "3.5"}]`, "3.5"},
		{"unknown object", `{"label": "LABEL_4", "score": 0.9}`, `{"label": "LABEL_4", "score": 0.9}`},
		{"classifier list kept", `[{"label":"1","score":0.2},{"label":"5","score":0.8}]`, `[{"label":"1","score":0.2},{"label":"5","score":0.8}]`},
		{"broken json", `{"content": `, `{"content":`},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestComplete_Normalizes(t *testing.T) {
	mock := NewMockProvider(`{"content": "support"}`)
	text, err := Complete(context.Background(), mock, CompletionRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "support" {
		t.Errorf("text = %q, want support", text)
	}
}

func TestMockProvider(t *testing.T) {
	mock := NewMockProvider("default").
		On("nasa.gov", "5").
		On("example", "2")

	resp, _ := mock.Complete(context.Background(), SourceScorePrompt("Web", "nasa.gov"))
	if resp.Text != "5" {
		t.Errorf("Expected keyed answer, got %q", resp.Text)
	}
	resp, _ = mock.Complete(context.Background(), CompletionRequest{Prompt: "other"})
	if resp.Text != "default" {
		t.Errorf("Expected default answer, got %q", resp.Text)
	}
	if len(mock.Calls()) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(mock.Calls()))
	}

	mock.Err = errors.New("boom")
	if _, err := mock.Complete(context.Background(), CompletionRequest{}); err == nil {
		t.Error("Expected configured error")
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "bogus"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
	if _, err := NewProvider(Config{}); err == nil {
		t.Error("Expected error when no provider configured")
	}

	p, err := NewProvider(Config{Provider: "Groq", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewProvider(groq) failed: %v", err)
	}
	if p.Name() != "groq" {
		t.Errorf("Name = %s, want groq", p.Name())
	}

	p, err = NewProvider(Config{Provider: "claude", APIKey: "k"})
	if err != nil || p.Name() != "anthropic" {
		t.Errorf("NewProvider(claude) = %v, %v", p, err)
	}
}

func TestRouter(t *testing.T) {
	def := NewMockProvider("default")
	scorer := NewMockProvider("scorer")
	r := NewRouter(def)
	r.Set(model.TaskScoring, scorer)

	if r.For(model.TaskScoring) != Provider(scorer) {
		t.Error("Expected scoring task to use its override")
	}
	if r.For(model.TaskAggregation) != Provider(def) {
		t.Error("Expected unset task to use the default provider")
	}
	if r.Default() != Provider(def) {
		t.Error("Default() mismatch")
	}
}

func TestNewRouterFromConfig(t *testing.T) {
	cfg := model.LLMConfig{
		Provider: "mock",
		Tasks: map[string]model.TaskConfig{
			model.TaskFactVerification: {Provider: "ollama", Model: "llama3.1"},
		},
	}

	r, err := NewRouterFromConfig(cfg, model.HTTPConfig{}, nil)
	if err != nil {
		t.Fatalf("NewRouterFromConfig failed: %v", err)
	}
	if r.For(model.TaskClaimExtraction).Name() != "mock" {
		t.Errorf("claim extraction provider = %s", r.For(model.TaskClaimExtraction).Name())
	}
	if r.For(model.TaskFactVerification).Name() != "ollama" {
		t.Errorf("fact verification provider = %s", r.For(model.TaskFactVerification).Name())
	}

	cfg.Tasks[model.TaskScoring] = model.TaskConfig{Provider: "bogus"}
	if _, err := NewRouterFromConfig(cfg, model.HTTPConfig{}, nil); err == nil {
		t.Error("Expected error for unknown task provider")
	}
}
