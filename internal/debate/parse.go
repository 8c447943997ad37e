package debate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/aaron1729/ai-debate/internal/models"
)

// Models wrap their JSON in prose often enough that a strict parse is not
// enough: first try the whole response, then fall back to the widest {...}
// span in the text.
var jsonSpanRe = regexp.MustCompile(`(?s)\{.*\}`)

func extractJSON(text string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, nil
	}

	span := jsonSpanRe.FindString(text)
	if span == "" {
		return nil, &MalformedResponseError{Snippet: snippet(text)}
	}
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, &MalformedResponseError{Snippet: snippet(text)}
	}
	return obj, nil
}

func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func boolField(obj map[string]json.RawMessage, key string) bool {
	raw, ok := obj[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

// parseTurn converts raw model output into a validated turn entry, stamped
// with the caller's position and model display name. A structured refusal is
// always accepted regardless of other fields; an argument must carry url,
// quote, context, and argument.
func parseTurn(text string, position models.Position, modelName string) (models.TurnEntry, error) {
	obj, err := extractJSON(text)
	if err != nil {
		return models.TurnEntry{}, err
	}

	if boolField(obj, "refused") {
		reason, ok := stringField(obj, "reason")
		if !ok || reason == "" {
			reason = "No reason provided"
		}
		return models.TurnEntry{
			Position:      position,
			Model:         modelName,
			Refused:       true,
			RefusalReason: reason,
		}, nil
	}

	entry := models.TurnEntry{Position: position, Model: modelName}
	var missing []string
	for _, field := range []struct {
		key string
		dst *string
	}{
		{"url", &entry.URL},
		{"quote", &entry.Quote},
		{"context", &entry.Context},
		{"argument", &entry.Argument},
	} {
		value, ok := stringField(obj, field.key)
		if !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, field.key)
			continue
		}
		*field.dst = value
	}
	if len(missing) > 0 {
		return models.TurnEntry{}, &IncompleteResponseError{Missing: missing}
	}

	return entry, nil
}

// parseDecision converts raw judge output into a validated decision. The
// verdict label must be one of the four known values and the score must obey
// the needs-more-evidence/nil pairing; violations are rejected, not coerced.
func parseDecision(text string) (models.JudgeDecision, error) {
	obj, err := extractJSON(text)
	if err != nil {
		return models.JudgeDecision{}, err
	}

	var missing []string

	verdictStr, ok := stringField(obj, "verdict")
	if !ok {
		missing = append(missing, "verdict")
	}
	reasoning, ok := stringField(obj, "reasoning")
	if !ok {
		missing = append(missing, "reasoning")
	}

	scoreRaw, ok := obj["score"]
	if !ok {
		missing = append(missing, "score")
	}
	if len(missing) > 0 {
		return models.JudgeDecision{}, &IncompleteResponseError{Missing: missing}
	}

	var score *int
	if string(scoreRaw) != "null" {
		var v int
		if err := json.Unmarshal(scoreRaw, &v); err != nil {
			return models.JudgeDecision{}, &IncompleteResponseError{Reason: "score is not an integer or null"}
		}
		score = &v
	}

	verdict := models.Verdict(strings.ToLower(strings.TrimSpace(verdictStr)))
	if err := models.ValidateDecision(verdict, score); err != nil {
		return models.JudgeDecision{}, &IncompleteResponseError{Reason: err.Error()}
	}

	return models.JudgeDecision{
		Verdict:   verdict,
		Score:     score,
		Reasoning: reasoning,
	}, nil
}
