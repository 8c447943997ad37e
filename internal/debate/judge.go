package debate

import (
	"context"

	"github.com/aaron1729/ai-debate/internal/llm"
	"github.com/aaron1729/ai-debate/internal/models"
)

const judgeMaxTokens = 1500

// Judge evaluates a debate transcript and produces a verdict. A Judge holds
// no mutable state across calls, so the same instance can be invoked
// repeatedly over different truncations of the same transcript.
type Judge struct {
	gateway   llm.Gateway
	modelName string
}

// NewJudge creates a judge backed by the given gateway.
func NewJudge(gateway llm.Gateway, modelName string) *Judge {
	return &Judge{gateway: gateway, modelName: modelName}
}

// ModelName returns the judge's display name.
func (j *Judge) ModelName() string { return j.modelName }

// JudgeDebate evaluates the claim against a (possibly truncated) transcript
// and returns a validated decision.
func (j *Judge) JudgeDebate(ctx context.Context, claim string, history []models.TurnEntry) (models.JudgeDecision, error) {
	text, err := j.gateway.Generate(ctx, judgeSystemPrompt(), judgeUserPrompt(claim, history), judgeMaxTokens)
	if err != nil {
		return models.JudgeDecision{}, err
	}

	return parseDecision(text)
}
