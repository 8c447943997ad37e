// Package debate implements the turn-taking protocol between two adversarial
// model agents, the response contract that turns free-text model output into
// validated transcript entries, and the judge that scores a finished
// transcript.
package debate

import (
	"context"

	"github.com/aaron1729/ai-debate/internal/llm"
	"github.com/aaron1729/ai-debate/internal/models"
)

const debaterMaxTokens = 2000

// Debater argues one assigned side of a claim through a model gateway.
type Debater struct {
	position  models.Position
	gateway   llm.Gateway
	modelName string
}

// NewDebater creates a debater arguing the given position. modelName is the
// display name stamped on every produced turn entry.
func NewDebater(position models.Position, gateway llm.Gateway, modelName string) *Debater {
	return &Debater{
		position:  position,
		gateway:   gateway,
		modelName: modelName,
	}
}

// Position returns the debater's assigned side.
func (d *Debater) Position() models.Position { return d.position }

// ModelName returns the debater's display name.
func (d *Debater) ModelName() string { return d.modelName }

// MakeArgument produces one validated turn entry given the claim and the
// accumulated prior transcript. Gateway failures and contract violations are
// both fatal for the call; no partial turn is ever returned.
func (d *Debater) MakeArgument(ctx context.Context, claim string, history []models.TurnEntry) (models.TurnEntry, error) {
	system := debaterSystemPrompt(claim, d.position)
	user := debaterUserPrompt(history)

	text, err := d.gateway.Generate(ctx, system, user, debaterMaxTokens)
	if err != nil {
		return models.TurnEntry{}, err
	}

	return parseTurn(text, d.position, d.modelName)
}
