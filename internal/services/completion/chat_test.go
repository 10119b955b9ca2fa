package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatProvider_Complete(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Jazz\n"}}]}`))
	}))
	defer server.Close()

	p := NewChatProvider("groq", server.URL+"/", "test-key", "llama-3.1-8b-instant", server.Client())

	out, err := p.Complete(context.Background(), Request{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Temperature: 0.2,
		MaxTokens:   8,
		TopP:        1,
	})
	require.NoError(t, err)
	assert.Equal(t, " Jazz\n", out)

	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, 8, got.MaxTokens)
	assert.Equal(t, 1.0, got.TopP)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestChatProvider_RequestModelOverrides(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"pop"}}]}`))
	}))
	defer server.Close()

	p := NewChatProvider("openai", server.URL, "k", "gpt-4o-mini", server.Client())
	_, err := p.Complete(context.Background(), Request{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got.Model)
}

func TestChatProvider_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer server.Close()

	p := NewChatProvider("groq", server.URL, "k", "m", server.Client())
	_, err := p.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.True(t, IsRetryableError(err))
}

func TestChatProvider_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p := NewChatProvider("groq", server.URL, "k", "m", server.Client())
	_, err := p.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestChatProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	p := NewChatProvider("groq", server.URL, "k", "m", &http.Client{Timeout: 50 * time.Millisecond})
	_, err := p.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, ErrorTransport, ClassifyError(err, "groq").Type)
}
