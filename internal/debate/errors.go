package debate

import (
	"fmt"
	"strings"
)

// MalformedResponseError signals that a model's raw output contained no
// parseable JSON object. Fatal for the call, never retried here.
type MalformedResponseError struct {
	Snippet string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("could not parse JSON from response: %s", e.Snippet)
}

// IncompleteResponseError signals that a parsed JSON object is missing
// required fields for its shape, or violates the verdict/score contract.
type IncompleteResponseError struct {
	Missing []string
	Reason  string
}

func (e *IncompleteResponseError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("response missing required fields: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid response: %s", e.Reason)
}

// snippet truncates raw model output for error messages.
func snippet(s string) string {
	const max = 200
	if len(s) > max {
		return s[:max]
	}
	return s
}
