// Package motions rewrites raw debate motions into standalone, unambiguous
// claims using an LLM editor pass. Motions scraped from debate archives tend
// to be questions, imperatives, or statements that only make sense with the
// debate's date attached; the cleaner normalizes all of that.
package motions

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aaron1729/ai-debate/internal/claims"
	"github.com/aaron1729/ai-debate/internal/llm"
)

const cleanerMaxTokens = 500

var jsonSpanRe = regexp.MustCompile(`(?s)\{.*\}`)

// Result is the editor's answer for one motion.
type Result struct {
	Motion  string `json:"motion"`
	Changed bool   `json:"changed"`
	Reason  string `json:"reason"`
}

// Cleaner drives the motion-editing model.
type Cleaner struct {
	gateway llm.Gateway
	retry   llm.RetryConfig
	log     *logrus.Logger
}

// NewCleaner creates a cleaner with a two-attempt retry policy around each
// motion.
func NewCleaner(gateway llm.Gateway, log *logrus.Logger) *Cleaner {
	if log == nil {
		log = logrus.New()
	}
	return &Cleaner{
		gateway: gateway,
		retry: llm.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 2 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		log: log,
	}
}

// Input is one raw motion to clean.
type Input struct {
	Motion string
	Date   string // free-form, "Unknown" when empty
	Source string
}

// Clean rewrites one motion. Generate, parse, and validate run inside the
// retry loop, so a malformed response gets a second chance.
func (c *Cleaner) Clean(ctx context.Context, in Input) (Result, error) {
	if in.Motion == "" {
		return Result{}, fmt.Errorf("motion text is empty")
	}

	return llm.Retry(ctx, c.retry, func() (Result, error) {
		text, err := c.gateway.Generate(ctx, cleanerSystemPrompt, cleanerUserPrompt(in), cleanerMaxTokens)
		if err != nil {
			return Result{}, err
		}
		return parseResult(text)
	})
}

// CleanAll processes a slice of motions, replacing each motion's text with
// its cleaned form. Failures keep the original text and are reported in the
// returned modification log alongside successful changes.
type Modification struct {
	Index    int    `json:"index"`
	Original string `json:"original"`
	Cleaned  string `json:"cleaned,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (c *Cleaner) CleanAll(ctx context.Context, motions []claims.Motion, dates []string) ([]claims.Motion, []Modification, error) {
	cleaned := make([]claims.Motion, len(motions))
	copy(cleaned, motions)

	var mods []Modification
	for i, m := range motions {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		date := ""
		if i < len(dates) {
			date = dates[i]
		}

		log := c.log.WithFields(logrus.Fields{
			"index":  i,
			"motion": m.Motion,
		})

		result, err := c.Clean(ctx, Input{Motion: m.Motion, Date: date, Source: m.Source})
		if err != nil {
			log.WithError(err).Warn("Failed to clean motion, keeping original")
			mods = append(mods, Modification{Index: i, Original: m.Motion, Error: err.Error()})
			continue
		}

		if !result.Changed {
			log.Debug("Motion already clean")
			continue
		}

		cleaned[i].Motion = result.Motion
		mods = append(mods, Modification{
			Index:    i,
			Original: m.Motion,
			Cleaned:  result.Motion,
			Reason:   result.Reason,
		})
		log.WithField("cleaned", result.Motion).Info("Motion cleaned")
	}

	return cleaned, mods, nil
}

func parseResult(text string) (Result, error) {
	payload := []byte(text)
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		span := jsonSpanRe.Find(payload)
		if span == nil {
			return Result{}, fmt.Errorf("no JSON object in cleaner response")
		}
		if err := json.Unmarshal(span, &result); err != nil {
			return Result{}, fmt.Errorf("invalid JSON in cleaner response: %w", err)
		}
	}

	if result.Motion == "" {
		return Result{}, fmt.Errorf("cleaner response missing motion field")
	}
	if result.Reason == "" {
		return Result{}, fmt.Errorf("cleaner response missing reason field")
	}
	return result, nil
}

func cleanerUserPrompt(in Input) string {
	date := in.Date
	if date == "" {
		date = "Unknown"
	}
	source := in.Source
	if source == "" {
		source = "Unknown"
	}
	return fmt.Sprintf(`Clean this debate motion:

ORIGINAL MOTION: %s
DEBATE DATE: %s
SOURCE: %s

Make it standalone and unambiguous while preserving the original meaning.

Return your response in JSON format.`, in.Motion, date, source)
}

const cleanerSystemPrompt = `You are a debate motion editor. Your task is to rewrite debate motions to be standalone and unambiguous while preserving their original meaning and intent.

## GUIDELINES FOR STANDALONE MOTIONS:

1. **Add temporal context for ALL motions**: Every debate happened at a specific time and reflected concerns of that era
   - For past debates (before ~2024): Use past tense with temporal framing
   - For recent debates (2024-2025): Use present tense with "As of [year]" framing
   - Even "timeless" claims should indicate WHEN they were being debated

   Examples:
   - "Men are obsolete" (2013) -> "In the context of 2013, men were obsolete."
   - "Tax the rich more" (2013) -> "As of 2013, governments should tax the rich more."
   - "Donald Trump can make America great again" (2016) -> "In 2016, Donald Trump could make America great again."
   - "The West has lost the Middle East" (2014) -> "As of 2014, the West had lost the Middle East."

2. **Use correct verb tenses**:
   - Past debates about past/completed events: Use past perfect ("had lost", "had been")
   - Past debates about then-present states: Use past tense ("were", "was")
   - Past debates about then-future possibilities: Use conditional past ("could", "would")
   - Recent debates about present: Use present tense with "As of [year]"

3. **Always end with proper punctuation**:
   - Every motion must be a complete sentence ending with a period
   - Remove trailing commas or incomplete phrasing

4. **Clarify ambiguous references**:
   - Replace "we" with the specific entity (e.g., "the United States", "Western nations")
   - Replace "the government" with the specific government when context is clear
   - Replace "this country" with the actual country name

5. **Convert questions to statements**:
   - "Do we need a Grand Strategy on China?" -> "The United States needs a Grand Strategy on China."
   - "Will the Future Be Abundant?" -> "The future will be abundant."
   - "Is War Inevitable?" -> "War is inevitable."

6. **Preserve debate-ability**:
   - Keep the motion debatable (someone can argue for or against)
   - Don't change the core claim or make it obviously true/false
   - Maintain the original controversy and scope

## RESPONSE FORMAT:
Return JSON with:
{
    "motion": "The cleaned motion text",
    "changed": true/false,
    "reason": "Brief explanation of what changed or why no changes"
}

## CRITICAL REQUIREMENTS:
1. **ALWAYS add temporal context** - Every motion needs a year/date reference
2. **ALWAYS end with a period** - Complete sentences only
3. **ALWAYS use correct verb tenses** - Match the time of the debate
4. **Be consistent** - Apply same standards to all motions

Do not be conservative - actively improve EVERY motion to meet these standards.`
