package completion

import (
	"net/http"

	"github.com/vibecheck/api/internal/config"
)

// NewProvider creates a completion provider based on the configuration.
// It wraps the primary in a FallbackProvider when fallback is enabled.
func NewProvider(cfg config.CompletionConfig, groqKey, openAIKey string, client *http.Client) Provider {
	primary := newNamedProvider(cfg.Provider, cfg.Model, groqKey, openAIKey, client)

	if cfg.FallbackEnabled {
		secondary := newNamedProvider(cfg.FallbackProvider, cfg.FallbackModel, groqKey, openAIKey, client)
		return NewFallbackProvider(primary, secondary)
	}

	return primary
}

func newNamedProvider(name, model, groqKey, openAIKey string, client *http.Client) Provider {
	switch ProviderType(name) {
	case ProviderOpenAI:
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAIProvider(openAIKey, model, client)
	default:
		if model == "" {
			model = "llama-3.1-8b-instant"
		}
		return NewGroqProvider(groqKey, model, client)
	}
}
