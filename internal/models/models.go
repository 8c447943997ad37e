// Package models defines the domain types shared across the debate system:
// claims, transcript entries, debate records, and judgments.
package models

import (
	"fmt"
	"time"
)

// Position identifies which side of the claim a debater argues.
type Position string

const (
	PositionPro Position = "pro"
	PositionCon Position = "con"
)

// Opposite returns the other side.
func (p Position) Opposite() Position {
	if p == PositionPro {
		return PositionCon
	}
	return PositionPro
}

// Verdict is one of the four labels a judge may assign to a claim.
type Verdict string

const (
	VerdictSupported    Verdict = "supported"
	VerdictContradicted Verdict = "contradicted"
	VerdictMisleading   Verdict = "misleading"
	VerdictNeedsMore    Verdict = "needs more evidence"
)

// Verdicts lists all valid verdict labels.
var Verdicts = []Verdict{
	VerdictSupported,
	VerdictContradicted,
	VerdictMisleading,
	VerdictNeedsMore,
}

// Valid reports whether v is one of the four known labels.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictSupported, VerdictContradicted, VerdictMisleading, VerdictNeedsMore:
		return true
	}
	return false
}

// Claim is the statement under debate, optionally annotated with an external
// identifier and topic. Ground truth is supplied by the claim corpus, never
// derived from the debate itself.
type Claim struct {
	Text    string `json:"claim"`
	ClaimID string `json:"claim_id,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

// GroundTruth carries externally supplied verdict metadata for a claim.
type GroundTruth struct {
	Verdict string `json:"verdict,omitempty"`
	Source  string `json:"source,omitempty"`
	URL     string `json:"url,omitempty"`
}

// TurnEntry is one contribution by one debater in one round. Turn is the
// round number, shared by both sides of the same round; truncation always
// filters on it, never on list position.
type TurnEntry struct {
	Turn     int      `json:"turn"`
	Position Position `json:"position"`
	Model    string   `json:"model"`
	Refused  bool     `json:"refused"`

	URL      string `json:"url,omitempty"`
	Quote    string `json:"quote,omitempty"`
	Context  string `json:"context,omitempty"`
	Argument string `json:"argument,omitempty"`

	RefusalReason string `json:"refusal_reason,omitempty"`
}

// ModelAssignment names the models playing each role. Judge is empty when
// judging was deferred.
type ModelAssignment struct {
	Pro   string `json:"pro"`
	Con   string `json:"con"`
	Judge string `json:"judge,omitempty"`
}

// ExperimentConfig records how a debate was run.
type ExperimentConfig struct {
	Timestamp    time.Time       `json:"timestamp"`
	Models       ModelAssignment `json:"models"`
	Turns        int             `json:"turns"`
	ProWentFirst bool            `json:"pro_went_first"`
}

// JudgeDecision is a validated verdict with its score and reasoning. Score is
// nil exactly when the verdict is "needs more evidence".
type JudgeDecision struct {
	Verdict   Verdict `json:"verdict"`
	Score     *int    `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// DebateRecord is the unit of record for one completed debate. It is created
// once the debate finishes (normally or shortened by refusal) and is immutable
// after it has been persisted.
type DebateRecord struct {
	Claim            Claim            `json:"claim_data"`
	Transcript       []TurnEntry      `json:"debate_transcript"`
	Config           ExperimentConfig `json:"experiment_config"`
	GroundTruth      *GroundTruth     `json:"ground_truth,omitempty"`
	JudgeDecision    *JudgeDecision   `json:"judge_decision,omitempty"`
	ErrorsOrRefusals []string         `json:"errors_or_refusals"`
}

// Judgment is one independent evaluation of a persisted debate's transcript
// truncated to TurnsConsidered rounds. Multiple judgments may exist for the
// same (experiment, judge, turns) tuple; they are appended, never merged.
type Judgment struct {
	ID              int64     `json:"id,omitempty"`
	ExperimentID    int64     `json:"experiment_id"`
	JudgeModel      string    `json:"judge_model"`
	TurnsConsidered int       `json:"turns_considered"`
	Verdict         Verdict   `json:"verdict"`
	Score           *int      `json:"score"`
	Reasoning       string    `json:"reasoning"`
	Timestamp       time.Time `json:"timestamp"`
}

// ValidateDecision enforces the verdict/score contract: the label must be one
// of the four known values, "needs more evidence" must carry a nil score, and
// every other label must carry an integer score in [0,10]. Violations are
// rejected here, never coerced.
func ValidateDecision(verdict Verdict, score *int) error {
	if !verdict.Valid() {
		return fmt.Errorf("invalid verdict %q", verdict)
	}
	if verdict == VerdictNeedsMore {
		if score != nil {
			return fmt.Errorf("verdict %q must not carry a score, got %d", verdict, *score)
		}
		return nil
	}
	if score == nil {
		return fmt.Errorf("verdict %q requires a score", verdict)
	}
	if *score < 0 || *score > 10 {
		return fmt.Errorf("score %d out of range [0,10]", *score)
	}
	return nil
}

// IntPtr returns a pointer to v. Convenience for score literals.
func IntPtr(v int) *int { return &v }
