package completion

import "context"

// ProviderType represents the type of completion provider
type ProviderType string

const (
	ProviderGroq   ProviderType = "groq"
	ProviderOpenAI ProviderType = "openai"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one non-streaming chat completion.
// An empty Model means the provider's configured model.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// Provider is a hosted LLM that returns the text of the first choice.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}
