// Package summarizer is the HTTP client to external large-language-model
// endpoints used by the knowledge distiller's LLM mode. It is a thin
// capability interface: the distiller never imports net/http directly.
package summarizer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dullfig/claude-rlm/internal/app"
)

// Provider is a summarizer capability: send a prompt, get back text.
// Implementations never hold the store lock across the network call (the
// distiller is responsible for dropping it before invoking Summarize and
// re-acquiring on return).
type Provider interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Message is one chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// New constructs the configured summarizer provider, or nil if the
// configuration doesn't enable one (the distiller falls back to heuristic
// mode in that case). The anthropic provider gets the 30s client timeout
// from §5; the three OpenAI-compatible providers get 60s.
func New(cfg app.LLMConfig) Provider {
	if !cfg.Configured() {
		return nil
	}
	switch cfg.Provider {
	case "anthropic":
		return &anthropicProvider{
			apiKey:  cfg.APIKey,
			model:   defaultString(cfg.Model, "claude-3-5-haiku-20241022"),
			baseURL: defaultString(cfg.BaseURL, "https://api.anthropic.com"),
			client:  &http.Client{Timeout: 30 * time.Second},
		}
	case "openai", "ollama", "openrouter":
		return &openAICompatProvider{
			provider: cfg.Provider,
			apiKey:   cfg.APIKey,
			model:    defaultString(cfg.Model, defaultModelFor(cfg.Provider)),
			baseURL:  defaultString(cfg.BaseURL, defaultBaseURLFor(cfg.Provider)),
			client:   &http.Client{Timeout: 60 * time.Second},
		}
	default:
		return nil
	}
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultModelFor(provider string) string {
	switch provider {
	case "ollama":
		return "llama3.1"
	case "openrouter":
		return "meta-llama/llama-3.1-70b-instruct"
	default:
		return "gpt-4o-mini"
	}
}

func defaultBaseURLFor(provider string) string {
	switch provider {
	case "ollama":
		return "http://localhost:11434/v1"
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	default:
		return "https://api.openai.com/v1"
	}
}

func readBodyError(resp *http.Response) error {
	buf := make([]byte, 2048)
	n, _ := resp.Body.Read(buf)
	return fmt.Errorf("%s: status %d: %s", resp.Request.URL.Host, resp.StatusCode, string(buf[:n]))
}
