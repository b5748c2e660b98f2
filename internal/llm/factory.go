package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/carelog/internal/model"
)

// NewProvider creates a new LLM provider based on configuration. A missing
// API key yields an error wrapping ErrNoCredential.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai", "":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:   c.Provider,
		Model:      c.Model,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		MaxTokens:  c.MaxTokens,
		HTTPProxy:  c.HTTPProxy,
		HTTPSProxy: c.HTTPSProxy,
		NoProxy:    c.NoProxy,
	}
}

// KeyEnvVar names the environment variable holding the provider's API key,
// empty for providers that need none.
func KeyEnvVar(provider string) string {
	switch strings.ToLower(provider) {
	case "openai", "":
		return "OPENAI_API_KEY"
	case "anthropic", "claude":
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// CredentialPresent reports whether config carries what its provider needs
// to authenticate.
func CredentialPresent(config Config) bool {
	if KeyEnvVar(config.Provider) == "" {
		return true
	}
	return config.APIKey != ""
}
