package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const openAIAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient calls the OpenAI chat completions API. It also serves any
// OpenAI-compatible endpoint (xAI's Grok) by overriding the base URL.
type OpenAIClient struct {
	provider   string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type openAIRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Messages  []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

// NewOpenAIClient builds a client for the given model spec.
func NewOpenAIClient(spec ModelSpec) *OpenAIClient {
	baseURL := spec.BaseURL
	if baseURL == "" {
		baseURL = openAIAPIURL
	}
	return &OpenAIClient{
		provider: spec.Provider,
		apiKey:   spec.APIKey,
		baseURL:  baseURL,
		model:    spec.ID,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Generate implements Gateway.
func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	reqBody := openAIRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Provider: c.provider, Model: c.model, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: c.provider, Model: c.model, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: c.provider, Model: c.model, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: c.provider, Model: c.model, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Provider: c.provider, Model: c.model, Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: c.provider, Model: c.model, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: c.provider, Model: c.model, Err: fmt.Errorf("response has no choices")}
	}

	return parsed.Choices[0].Message.Content, nil
}
