package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vibecheck/api/internal/httpclient"
	"github.com/vibecheck/api/internal/metrics"
)

const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OpenAIBaseURL = "https://api.openai.com/v1"
)

var ErrNoResponse = errors.New("no choices in completion response")

// ChatProvider talks to any OpenAI-compatible /chat/completions endpoint.
type ChatProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewChatProvider creates a provider. A nil client gets a 10s instrumented client.
func NewChatProvider(name, baseURL, apiKey, model string, client *http.Client) *ChatProvider {
	if client == nil {
		client = httpclient.New(10 * time.Second)
	}
	return &ChatProvider{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

// NewGroqProvider creates a Groq chat provider
func NewGroqProvider(apiKey, model string, client *http.Client) *ChatProvider {
	return NewChatProvider(string(ProviderGroq), GroqBaseURL, apiKey, model, client)
}

// NewOpenAIProvider creates an OpenAI chat provider
func NewOpenAIProvider(apiKey, model string, client *http.Client) *ChatProvider {
	return NewChatProvider(string(ProviderOpenAI), OpenAIBaseURL, apiKey, model, client)
}

func (p *ChatProvider) Name() string { return p.name }

// Model returns the model used when a request does not name one.
func (p *ChatProvider) Model() string { return p.model }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends req and returns the first choice's content.
func (p *ChatProvider) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	status := 0
	defer func() {
		metrics.RecordExternalCall(ctx, p.name, "chat.completions", status, time.Since(start).Seconds())
	}()

	model := req.Model
	if model == "" {
		model = p.model
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode %s request: %w", p.name, err)
	}

	httpReq, err := http.NewRequestWithContext(httpclient.WithUpstream(ctx, p.name), http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%s API error (status %d): %s", p.name, resp.StatusCode, truncate(string(respBody), 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrNoResponse
	}

	return chatResp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
