package llm

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ppiankov/claimcheck/internal/model"
	"go.uber.org/zap"
)

// Router picks a provider per inference task. Tasks without an override
// use the default provider.
type Router struct {
	mu    sync.RWMutex
	def   Provider
	tasks map[string]Provider
}

// NewRouter creates a router with a default provider
func NewRouter(def Provider) *Router {
	return &Router{def: def, tasks: make(map[string]Provider)}
}

// Set routes task to p
func (r *Router) Set(task string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task] = p
}

// For returns the provider for task
func (r *Router) For(task string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.tasks[task]; ok {
		return p
	}
	return r.def
}

// Default returns the default provider
func (r *Router) Default() Provider {
	return r.def
}

// NewRouterFromConfig builds one provider for the default settings and one
// per task override. Missing API keys are read from the provider's
// conventional environment variable.
func NewRouterFromConfig(cfg model.LLMConfig, httpCfg model.HTTPConfig, logger *zap.Logger) (*Router, error) {
	def, err := NewProvider(withEnvKey(ConfigFromModel(cfg, httpCfg, logger)))
	if err != nil {
		return nil, fmt.Errorf("default provider: %w", err)
	}
	r := NewRouter(def)

	tasks := make([]string, 0, len(cfg.Tasks))
	for task := range cfg.Tasks {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)

	for _, task := range tasks {
		p, err := NewProvider(withEnvKey(ConfigFromModel(cfg.Task(task), httpCfg, logger)))
		if err != nil {
			return nil, fmt.Errorf("%s provider: %w", task, err)
		}
		r.Set(task, p)
		if logger != nil {
			logger.Debug("routing inference task", zap.String("task", task), zap.String("provider", p.Name()))
		}
	}
	return r, nil
}

func withEnvKey(c Config) Config {
	if c.Provider == "ollama" && c.BaseURL == "" {
		c.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if c.APIKey != "" {
		return c
	}
	if env := APIKeyEnv(c.Provider); env != "" {
		c.APIKey = os.Getenv(env)
	}
	return c
}
