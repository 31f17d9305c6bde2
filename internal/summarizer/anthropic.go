package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// anthropicProvider speaks the Anthropic Messages API shape, grounded on
// hazyhaar-GoClode's Request/Response shapes adapted to a single endpoint
// rather than a registry entry.
type anthropicProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *anthropicProvider) Summarize(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(anthropicRequest{
		Model:     p.model,
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: encode anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("summarizer: build anthropic request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer: anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readBodyError(resp)
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summarizer: decode anthropic response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("summarizer: anthropic error: %s", out.Error.Message)
	}
	for _, block := range out.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("summarizer: anthropic response had no text content")
}
