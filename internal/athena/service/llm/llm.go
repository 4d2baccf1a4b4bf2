// Package llm builds eino chat models for the providers Athena can talk to.
package llm

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
)

// Params selects and configures one chat model. Plugins decode it straight
// from their configuration.
type Params struct {
	Provider    string   `json:"provider"              mapstructure:"provider"`
	BaseURL     string   `json:"base_url,omitempty"    mapstructure:"base_url"`
	APIKey      string   `json:"-"                     mapstructure:"api_key"`
	Model       string   `json:"model"                 mapstructure:"model"`
	Temperature *float32 `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   int      `json:"max_tokens,omitempty"  mapstructure:"max_tokens"`
	TopP        *float32 `json:"top_p,omitempty"       mapstructure:"top_p"`
}

// Builder creates a chat model from resolved params.
type Builder func(ctx context.Context, p *Params) (model.BaseChatModel, error)

// Provider describes one model provider.
type Provider struct {
	Name           string
	DefaultBaseURL string
	// APIKeyEnv is read when no api key is configured.
	APIKeyEnv string
	Build     Builder
}

// Registry is a thread-safe registry for LLM providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider. Returns an error if the name is taken.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[p.Name]; ok {
		return fmt.Errorf("provider %s is already registered", p.Name)
	}
	r.providers[p.Name] = p
	return nil
}

// MustRegister adds a provider and panics if the name is taken.
func (r *Registry) MustRegister(p Provider) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return Provider{}, fmt.Errorf("provider %s is not registered", name)
	}
	return p, nil
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve fills provider defaults into a copy of params: the default base
// URL, and the api key from ${ENV} indirection or the provider's env var.
func (r *Registry) Resolve(params Params) (Params, Provider, error) {
	if params.Provider == "" {
		params.Provider = OpenAIName
	}
	p, err := r.Get(params.Provider)
	if err != nil {
		return params, Provider{}, err
	}
	if params.Model == "" {
		return params, Provider{}, fmt.Errorf("provider %s: model is required", params.Provider)
	}
	if params.BaseURL == "" {
		params.BaseURL = p.DefaultBaseURL
	}
	params.APIKey = ResolveEnvValue(params.APIKey)
	if params.APIKey == "" && p.APIKeyEnv != "" {
		params.APIKey = os.Getenv(p.APIKeyEnv)
	}
	return params, p, nil
}

// BuildChatModel resolves params and builds the chat model.
func (r *Registry) BuildChatModel(ctx context.Context, params Params) (model.BaseChatModel, error) {
	resolved, p, err := r.Resolve(params)
	if err != nil {
		return nil, err
	}
	cm, err := p.Build(ctx, &resolved)
	if err != nil {
		return nil, fmt.Errorf("build %s chat model %q: %w", p.Name, resolved.Model, err)
	}
	return cm, nil
}

// NewInTreeRegistry returns a registry holding every built-in provider.
func NewInTreeRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(Provider{Name: OpenAIName, DefaultBaseURL: "https://api.openai.com/v1", APIKeyEnv: "OPENAI_API_KEY", Build: buildOpenAI})
	r.MustRegister(Provider{Name: AnthropicName, DefaultBaseURL: "", APIKeyEnv: "ANTHROPIC_API_KEY", Build: buildAnthropic})
	r.MustRegister(Provider{Name: GeminiName, DefaultBaseURL: "https://generativelanguage.googleapis.com/", APIKeyEnv: "GOOGLE_API_KEY", Build: buildGemini})
	r.MustRegister(Provider{Name: DeepSeekName, DefaultBaseURL: "https://api.deepseek.com/v1", APIKeyEnv: "DEEPSEEK_API_KEY", Build: buildDeepSeek})
	r.MustRegister(Provider{Name: QwenName, DefaultBaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", APIKeyEnv: "DASHSCOPE_API_KEY", Build: buildQwen})
	r.MustRegister(Provider{Name: OllamaName, DefaultBaseURL: "http://127.0.0.1:11434", Build: buildOllama})
	// OpenAI compatible endpoints.
	r.MustRegister(Provider{Name: "kimi", DefaultBaseURL: "https://api.moonshot.cn/v1", APIKeyEnv: "MOONSHOT_API_KEY", Build: buildOpenAI})
	r.MustRegister(Provider{Name: "glm", DefaultBaseURL: "https://open.bigmodel.cn/api/paas/v4", APIKeyEnv: "ZHIPU_API_KEY", Build: buildOpenAI})
	return r
}

var defaultRegistry = NewInTreeRegistry()

// Default returns the process wide registry of built-in providers.
func Default() *Registry {
	return defaultRegistry
}

// ResolveEnvValue resolves a "${ENV_VAR}" reference. Other strings are
// returned as is.
func ResolveEnvValue(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	return s
}
