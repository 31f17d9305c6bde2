package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// openAICompatProvider speaks the OpenAI-compatible chat-completions shape
// shared by openai, ollama, and openrouter, grounded on
// hazyhaar-GoClode/internal/providers/openrouter.go's request/response
// structs. The three providers differ only in base URL, auth header
// handling, and default model — the wire shape is identical.
type openAICompatProvider struct {
	provider string
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
}

type chatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatCompletionChoice struct {
	Message Message `json:"message"`
}

type chatCompletionResponse struct {
	Choices []chatCompletionChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *openAICompatProvider) Summarize(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(chatCompletionRequest{
		Model:    p.model,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: encode %s request: %w", p.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("summarizer: build %s request: %w", p.provider, err)
	}
	req.Header.Set("content-type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("authorization", "Bearer "+p.apiKey)
	}
	if p.provider == "openrouter" {
		req.Header.Set("HTTP-Referer", "https://github.com/dullfig/claude-rlm")
		req.Header.Set("X-Title", "claude-rlm")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer: %s request failed: %w", p.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readBodyError(resp)
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summarizer: decode %s response: %w", p.provider, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("summarizer: %s error: %s", p.provider, out.Error.Message)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("summarizer: %s response had no choices", p.provider)
	}
	return out.Choices[0].Message.Content, nil
}
