package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dullfig/claude-rlm/internal/app"
)

func TestNewDispatchesByProvider(t *testing.T) {
	cases := []struct {
		provider string
		wantType string
	}{
		{"anthropic", "*summarizer.anthropicProvider"},
		{"openai", "*summarizer.openAICompatProvider"},
		{"ollama", "*summarizer.openAICompatProvider"},
		{"openrouter", "*summarizer.openAICompatProvider"},
	}
	for _, tc := range cases {
		cfg := app.LLMConfig{Provider: tc.provider, APIKey: "key"}
		p := New(cfg)
		require.NotNil(t, p)
		assert.Equal(t, tc.wantType, fmt.Sprintf("%T", p))
	}
}

func TestNewReturnsNilWhenNotConfigured(t *testing.T) {
	assert.Nil(t, New(app.LLMConfig{}))
	assert.Nil(t, New(app.LLMConfig{Provider: "openai"})) // no api key
}

func TestAnthropicProviderSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Messages[0].Content)
		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContentBlock{{Type: "text", Text: "summary text"}},
		})
	}))
	defer srv.Close()

	p := &anthropicProvider{apiKey: "test-key", model: "claude-3-5-haiku-20241022", baseURL: srv.URL, client: srv.Client()}
	out, err := p.Summarize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "summary text", out)
}

func TestOpenAICompatProviderSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("authorization"))
		_ = json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []chatCompletionChoice{{Message: Message{Role: "assistant", Content: "compat summary"}}},
		})
	}))
	defer srv.Close()

	p := &openAICompatProvider{provider: "openai", apiKey: "test-key", model: "gpt-4o-mini", baseURL: srv.URL, client: srv.Client()}
	out, err := p.Summarize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "compat summary", out)
}

func TestOpenAICompatProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	p := &openAICompatProvider{provider: "ollama", model: "llama3.1", baseURL: srv.URL, client: srv.Client()}
	_, err := p.Summarize(context.Background(), "hello")
	assert.Error(t, err)
}
