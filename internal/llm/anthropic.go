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

const anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewAnthropicClient builds a client for the given model spec.
func NewAnthropicClient(spec ModelSpec) *AnthropicClient {
	baseURL := spec.BaseURL
	if baseURL == "" {
		baseURL = anthropicAPIURL
	}
	return &AnthropicClient{
		apiKey:  spec.APIKey,
		baseURL: baseURL,
		model:   spec.ID,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Generate implements Gateway.
func (c *AnthropicClient) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Provider: "anthropic", Model: c.model, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: "anthropic", Model: c.model, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: "anthropic", Model: c.model, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: "anthropic", Model: c.model, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Provider: "anthropic", Model: c.model, Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: "anthropic", Model: c.model, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if len(parsed.Content) == 0 {
		return "", &ProviderError{Provider: "anthropic", Model: c.model, Err: fmt.Errorf("response has no content blocks")}
	}

	return parsed.Content[0].Text, nil
}
