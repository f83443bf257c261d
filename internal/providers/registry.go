package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry holds named LLM clients and their rate limiters. It supports
// config-driven instantiation and hot reload.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]LLMClient
	configs  map[string]LLMProviderConfig
	limiters map[string]*RateLimiter
	logger   *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:  make(map[string]LLMClient),
		configs:  make(map[string]LLMProviderConfig),
		limiters: make(map[string]*RateLimiter),
		logger:   slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds a client under name with a limiter of rpm requests per minute.
func (r *Registry) Register(name string, client LLMClient, rpm int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.limiters[name] = NewRateLimiter(rpm)
	delete(r.configs, name)
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name, "client", client.Name())
	}
}

// Unregister removes a client by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(name)
}

// Get returns a client by name.
func (r *Registry) Get(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	return client, nil
}

// Limiter returns the rate limiter for name, or nil.
func (r *Registry) Limiter(name string) *RateLimiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}

// Has checks if a client is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[name]
	return ok
}

// List returns registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LLMProviderConfig is one configured provider with its API key resolved.
type LLMProviderConfig struct {
	Type       string // "openrouter", "openai", "mock"
	Model      string
	APIKey     string
	BaseURL    string
	RateLimit  int // Requests per minute
	Timeout    time.Duration
	MaxRetries int
	Enabled    bool
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

// NewRegistryFromConfig creates a registry with the usable providers in cfg.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload reconciles the registry with cfg. Removed or disabled providers are
// unregistered; changed ones are rebuilt; unchanged ones keep their client
// and limiter state.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.LLMProviders {
		if !usable(provCfg) {
			continue
		}
		want[name] = true

		existing, hasExisting := r.configs[name]
		if hasExisting && existing == provCfg {
			continue
		}
		client := createLLMClient(provCfg)
		if client == nil {
			if r.logger != nil {
				r.logger.Warn("unknown provider type", "name", name, "type", provCfg.Type)
			}
			delete(want, name)
			continue
		}
		r.clients[name] = client
		r.configs[name] = provCfg
		r.limiters[name] = NewRateLimiter(provCfg.RateLimit)
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type, "model", provCfg.Model)
			} else {
				r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type, "model", provCfg.Model)
			}
		}
	}

	for name := range r.clients {
		if !want[name] {
			r.remove(name)
		}
	}
}

// remove must be called with the lock held.
func (r *Registry) remove(name string) {
	if _, ok := r.clients[name]; !ok {
		return
	}
	delete(r.clients, name)
	delete(r.configs, name)
	delete(r.limiters, name)
	if r.logger != nil {
		r.logger.Info("unregistered LLM client", "name", name)
	}
}

func usable(cfg LLMProviderConfig) bool {
	if !cfg.Enabled {
		return false
	}
	return cfg.Type == MockClientName || cfg.APIKey != ""
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
		})
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
		})
	case MockClientName:
		return NewMockClient()
	default:
		return nil
	}
}
