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

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// GeminiClient calls the Gemini generateContent API. Gemini has no separate
// system role here, so the system prompt is prepended to the user prompt.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

// NewGeminiClient builds a client for the given model spec.
func NewGeminiClient(spec ModelSpec) *GeminiClient {
	baseURL := spec.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf(geminiAPIURL, spec.ID)
	}
	return &GeminiClient{
		apiKey:  spec.APIKey,
		baseURL: baseURL,
		model:   spec.ID,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Generate implements Gateway.
func (c *GeminiClient) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	combined := systemPrompt + "\n\n" + userPrompt
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: combined}}},
		},
		GenerationConfig: &geminiGenerationConfig{MaxOutputTokens: maxTokens},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Provider: "google", Model: c.model, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: "google", Model: c.model, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: "google", Model: c.model, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: "google", Model: c.model, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Provider: "google", Model: c.model, Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: "google", Model: c.model, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &ProviderError{Provider: "google", Model: c.model, Err: fmt.Errorf("response has no candidates")}
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
