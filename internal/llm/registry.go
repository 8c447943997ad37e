package llm

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelSpec describes one logical model identity in the registry.
type ModelSpec struct {
	Key      string `yaml:"-"`
	Name     string `yaml:"name"`
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// Registry is an immutable table of model specs, loaded once at process start
// and passed explicitly to whoever constructs gateways. It is never mutated
// after construction.
type Registry struct {
	specs map[string]ModelSpec
}

type registryFile struct {
	Models map[string]ModelSpec `yaml:"models"`
}

// DefaultRegistry returns the stock four-model table. API keys are read from
// the conventional environment variables at construction time.
func DefaultRegistry() *Registry {
	specs := map[string]ModelSpec{
		"claude": {
			Name:     "Claude Sonnet 4.5",
			ID:       "claude-sonnet-4-5-20250929",
			Provider: "anthropic",
			APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		},
		"gpt4": {
			Name:     "GPT-4",
			ID:       "gpt-4-turbo-preview",
			Provider: "openai",
			APIKey:   os.Getenv("OPENAI_API_KEY"),
		},
		"gemini": {
			Name:     "Gemini 2.5 Flash",
			ID:       "gemini-2.5-flash",
			Provider: "google",
			APIKey:   os.Getenv("GOOGLE_API_KEY"),
		},
		"grok": {
			Name:     "Grok 3",
			ID:       "grok-3",
			Provider: "xai",
			APIKey:   os.Getenv("XAI_API_KEY"),
			BaseURL:  "https://api.x.ai/v1/chat/completions",
		},
	}
	return newRegistry(specs)
}

// LoadRegistry reads a YAML model table. ${VAR} placeholders in api_key and
// base_url are expanded from the environment.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry builds a registry from raw YAML.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model registry: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("model registry defines no models")
	}

	specs := make(map[string]ModelSpec, len(file.Models))
	for key, spec := range file.Models {
		spec.APIKey = os.ExpandEnv(spec.APIKey)
		spec.BaseURL = os.ExpandEnv(spec.BaseURL)
		if spec.ID == "" {
			return nil, fmt.Errorf("model %q has no id", key)
		}
		if spec.Provider == "" {
			return nil, fmt.Errorf("model %q has no provider", key)
		}
		if spec.Name == "" {
			spec.Name = spec.ID
		}
		specs[key] = spec
	}
	return newRegistry(specs), nil
}

func newRegistry(specs map[string]ModelSpec) *Registry {
	for key, spec := range specs {
		spec.Key = key
		specs[key] = spec
	}
	return &Registry{specs: specs}
}

// Spec looks up a model by key.
func (r *Registry) Spec(key string) (ModelSpec, error) {
	spec, ok := r.specs[key]
	if !ok {
		return ModelSpec{}, fmt.Errorf("unknown model %q, available: %v", key, r.Keys())
	}
	return spec, nil
}

// Keys returns the registered model keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.specs))
	for key := range r.specs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Name returns the display name for a model key, or the key itself when
// unknown.
func (r *Registry) Name(key string) string {
	if spec, ok := r.specs[key]; ok {
		return spec.Name
	}
	return key
}

// Gateway constructs the provider client for a model key.
func (r *Registry) Gateway(key string) (Gateway, error) {
	spec, err := r.Spec(key)
	if err != nil {
		return nil, err
	}
	if spec.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for model %q (provider %s)", key, spec.Provider)
	}

	switch spec.Provider {
	case "anthropic":
		return NewAnthropicClient(spec), nil
	case "openai", "xai":
		// Grok exposes an OpenAI-compatible API; only the base URL differs.
		return NewOpenAIClient(spec), nil
	case "google":
		return NewGeminiClient(spec), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q for model %q", spec.Provider, key)
	}
}
