package completion

import (
	"testing"

	"github.com/vibecheck/api/internal/config"
)

func TestFactory_Groq(t *testing.T) {
	provider := NewProvider(config.CompletionConfig{Provider: "groq", Model: "llama-3.1-8b-instant"}, "groq-key", "openai-key", nil)

	p, ok := provider.(*ChatProvider)
	if !ok {
		t.Fatalf("Expected ChatProvider, got %T", provider)
	}
	if p.Name() != "groq" || p.baseURL != GroqBaseURL || p.apiKey != "groq-key" {
		t.Errorf("Unexpected groq provider %+v", p)
	}
}

func TestFactory_OpenAI(t *testing.T) {
	provider := NewProvider(config.CompletionConfig{Provider: "openai"}, "groq-key", "openai-key", nil)

	p, ok := provider.(*ChatProvider)
	if !ok {
		t.Fatalf("Expected ChatProvider, got %T", provider)
	}
	if p.baseURL != OpenAIBaseURL || p.Model() != "gpt-4o-mini" {
		t.Errorf("Unexpected openai provider %+v", p)
	}
}

func TestFactory_Default(t *testing.T) {
	provider := NewProvider(config.CompletionConfig{}, "groq-key", "", nil)

	p, ok := provider.(*ChatProvider)
	if !ok || p.Name() != "groq" {
		t.Fatalf("Expected default groq ChatProvider, got %T", provider)
	}
	if p.Model() != "llama-3.1-8b-instant" {
		t.Errorf("Expected default model, got %s", p.Model())
	}
}

func TestFactory_WithFallback(t *testing.T) {
	cfg := config.CompletionConfig{
		Provider:         "groq",
		FallbackEnabled:  true,
		FallbackProvider: "openai",
		FallbackModel:    "gpt-4o-mini",
	}

	provider := NewProvider(cfg, "groq-key", "openai-key", nil)

	fallbackProvider, ok := provider.(*FallbackProvider)
	if !ok {
		t.Fatalf("Expected FallbackProvider, got %T", provider)
	}
	if fallbackProvider.Primary.Name() != "groq" {
		t.Errorf("Expected primary groq, got %s", fallbackProvider.Primary.Name())
	}
	if fallbackProvider.Secondary.Name() != "openai" {
		t.Errorf("Expected secondary openai, got %s", fallbackProvider.Secondary.Name())
	}
}
