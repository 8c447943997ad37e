// Package claims loads the claim corpus: individual claims addressed by a
// "path:index" spec, and motion files used for unjudged debate runs.
package claims

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aaron1729/ai-debate/internal/models"
)

// rawClaim accepts the field variants that appear across claim corpora. Older
// files use "text", motion files use "motion", fact-check exports carry a
// "publisher" instead of a "source".
type rawClaim struct {
	Claim     string `json:"claim"`
	Text      string `json:"text"`
	Motion    string `json:"motion"`
	Topic     string `json:"topic"`
	Verdict   string `json:"verdict"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Publisher string `json:"publisher"`
}

func (r rawClaim) text() string {
	switch {
	case r.Claim != "":
		return r.Claim
	case r.Text != "":
		return r.Text
	default:
		return r.Motion
	}
}

// Load resolves a "path:index" claim spec against its JSON array file and
// returns the claim plus whatever ground-truth metadata the entry carries.
// The full spec string becomes the claim's ClaimID. Files named
// claims_gpt5_*.json are attributed to the "gpt5" source.
func Load(spec string) (models.Claim, *models.GroundTruth, error) {
	path, index, err := parseSpec(spec)
	if err != nil {
		return models.Claim{}, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Claim{}, nil, fmt.Errorf("failed to read claims file: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return models.Claim{}, nil, fmt.Errorf("claims file %s must contain a JSON array: %w", path, err)
	}
	if index < 0 || index >= len(entries) {
		return models.Claim{}, nil, fmt.Errorf("index %d out of range (file has %d claims)", index, len(entries))
	}

	claim := models.Claim{ClaimID: spec}
	var gt models.GroundTruth

	// An entry is either an object or a bare string.
	var raw rawClaim
	if err := json.Unmarshal(entries[index], &raw); err == nil {
		claim.Text = raw.text()
		claim.Topic = raw.Topic
		gt.Verdict = raw.Verdict
		gt.URL = raw.URL
		gt.Source = groundTruthSource(path, raw)
	} else {
		var s string
		if err := json.Unmarshal(entries[index], &s); err != nil {
			return models.Claim{}, nil, fmt.Errorf("claim at index %d is neither object nor string", index)
		}
		claim.Text = s
	}

	if claim.Text == "" {
		return models.Claim{}, nil, fmt.Errorf("could not extract claim text from index %d", index)
	}

	if gt == (models.GroundTruth{}) {
		return claim, nil, nil
	}
	return claim, &gt, nil
}

func groundTruthSource(path string, raw rawClaim) string {
	if strings.HasPrefix(filepath.Base(path), "claims_gpt5") {
		return "gpt5"
	}
	if raw.Publisher != "" {
		return raw.Publisher
	}
	return raw.Source
}

func parseSpec(spec string) (path string, index int, err error) {
	sep := strings.LastIndex(spec, ":")
	if sep < 0 {
		return "", 0, fmt.Errorf("claim spec must be in format 'filename:index', got: %s", spec)
	}
	path = spec[:sep]
	index, err = strconv.Atoi(spec[sep+1:])
	if err != nil {
		return "", 0, fmt.Errorf("claim spec index must be an integer, got: %s", spec[sep+1:])
	}
	return path, index, nil
}

// Count returns the number of entries in a claims JSON array file.
func Count(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read claims file: %w", err)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("claims file %s must contain a JSON array: %w", path, err)
	}
	return len(entries), nil
}

// Motion is one entry of a debate-motions file. Motions carry no verdict;
// debates over them run unjudged.
type Motion struct {
	Motion    string `json:"motion"`
	Topic     string `json:"topic,omitempty"`
	Source    string `json:"source,omitempty"`
	SourceURL string `json:"sourceUrl,omitempty"`
}

// Claim converts the motion into a claim addressed by path:index, with the
// motion's provenance as ground-truth metadata (no verdict).
func (m Motion) Claim(path string, index int) (models.Claim, *models.GroundTruth) {
	claim := models.Claim{
		Text:    m.Motion,
		ClaimID: fmt.Sprintf("%s:%d", path, index),
		Topic:   m.Topic,
	}
	if m.Source == "" && m.SourceURL == "" {
		return claim, nil
	}
	return claim, &models.GroundTruth{Source: m.Source, URL: m.SourceURL}
}

// LoadMotions reads a debate-motions JSON array. An empty file is an error.
func LoadMotions(path string) ([]Motion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read motions file: %w", err)
	}

	var motions []Motion
	if err := json.Unmarshal(data, &motions); err != nil {
		return nil, fmt.Errorf("motions file %s must contain a JSON array: %w", path, err)
	}
	if len(motions) == 0 {
		return nil, fmt.Errorf("no motions found in %s", path)
	}

	for i, m := range motions {
		if m.Motion == "" {
			return nil, fmt.Errorf("motion at index %d has no 'motion' field", i)
		}
	}
	return motions, nil
}

// PickMotion selects a motion by index, or randomly from rng when index is
// negative. Out-of-range indices are an error.
func PickMotion(motions []Motion, index int, rng *rand.Rand) (Motion, int, error) {
	if index >= 0 {
		if index >= len(motions) {
			return Motion{}, 0, fmt.Errorf("motion index %d out of range (0-%d)", index, len(motions)-1)
		}
		return motions[index], index, nil
	}
	i := rng.Intn(len(motions))
	return motions[i], i, nil
}
