// Package llm wraps model providers behind a single text-generation
// capability. Each provider is a plain HTTP client; transport, auth, and
// rate-limit failures all surface as *ProviderError. The package performs no
// retries of its own; see Retry for callers that want them.
package llm

import (
	"context"
	"fmt"
)

// Gateway is the single capability the debate system needs from a model:
// generate text from a system prompt and a user prompt. Implementations must
// honor ctx cancellation so callers can layer their own timeout policy on
// each call.
type Gateway interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// ProviderError is the opaque failure signal for any gateway call. The core
// never interprets provider-specific error types beyond this wrapper.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s api error (model %s): %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
