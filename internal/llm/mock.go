package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockProvider answers from canned responses; used for offline runs and tests
type MockProvider struct {
	// Responses maps a prompt substring to the answer. The first match in
	// Keys order wins; unmatched prompts get Default.
	Responses map[string]string
	Keys      []string
	Default   string
	Err       error

	mu    sync.Mutex
	calls []CompletionRequest
}

// NewMockProvider creates a mock that always answers with text
func NewMockProvider(text string) *MockProvider {
	return &MockProvider{Default: text}
}

// On registers an answer for prompts containing substr
func (m *MockProvider) On(substr, answer string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Responses == nil {
		m.Responses = make(map[string]string)
	}
	if _, ok := m.Responses[substr]; !ok {
		m.Keys = append(m.Keys, substr)
	}
	m.Responses[substr] = answer
	return m
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return "mock"
}

// IsAvailable always reports true
func (m *MockProvider) IsAvailable(context.Context) bool {
	return true
}

// Complete returns the canned answer for req
func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, fmt.Errorf("mock: %w", m.Err)
	}

	text := m.Default
	for _, k := range m.Keys {
		if strings.Contains(req.Prompt, k) {
			text = m.Responses[k]
			break
		}
	}
	return &CompletionResponse{Text: text, Model: "mock"}, nil
}

// Calls returns a copy of the requests seen so far
func (m *MockProvider) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.calls...)
}
