package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aaron1729/ai-debate/internal/claims"
	"github.com/aaron1729/ai-debate/internal/motions"
)

type cleanMotionsOptions struct {
	inputFile  string
	outputFile string
	modsFile   string
	model      string
}

func newCleanMotionsCmd(root *rootOptions) *cobra.Command {
	opts := &cleanMotionsOptions{}

	cmd := &cobra.Command{
		Use:   "clean-motions",
		Short: "Rewrite raw debate motions to be standalone and unambiguous",
		Long: `Run the motion editor over a motions file: each motion gets temporal
context, complete-sentence phrasing, and disambiguated references while
preserving its meaning. Motions that fail cleaning keep their original text.
A modification log is written alongside the cleaned output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanMotions(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.inputFile, "input", "data/debate_motions_raw.json", "raw motions JSON file")
	flags.StringVar(&opts.outputFile, "output", "data/debate_motions.json", "cleaned motions output file")
	flags.StringVar(&opts.modsFile, "modifications", "data/motion_modifications.json", "modification log output file")
	flags.StringVar(&opts.model, "model", "claude", "model key for the editor pass")

	return cmd
}

// rawMotion carries the optional date field raw motion files have on top of
// the standard motion shape.
type rawMotion struct {
	claims.Motion
	Date string `json:"date,omitempty"`
}

func runCleanMotions(cmd *cobra.Command, root *rootOptions, opts *cleanMotionsOptions) error {
	registry, err := root.registry()
	if err != nil {
		return err
	}
	gw, err := registry.Gateway(opts.model)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(opts.inputFile)
	if err != nil {
		return fmt.Errorf("failed to read motions file: %w", err)
	}
	var raw []rawMotion
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("motions file %s must contain a JSON array: %w", opts.inputFile, err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("no motions found in %s", opts.inputFile)
	}

	input := make([]claims.Motion, len(raw))
	dates := make([]string, len(raw))
	for i, m := range raw {
		input[i] = m.Motion
		dates[i] = m.Date
	}

	cmd.Printf("Cleaning %d motions with %s...\n", len(input), registry.Name(opts.model))

	cleaner := motions.NewCleaner(gw, root.log)
	cleaned, mods, err := cleaner.CleanAll(cmd.Context(), input, dates)
	if err != nil {
		return err
	}

	if err := writeJSON(opts.outputFile, cleaned); err != nil {
		return err
	}
	if err := writeJSON(opts.modsFile, mods); err != nil {
		return err
	}

	failed := 0
	for _, m := range mods {
		if m.Error != "" {
			failed++
		}
	}
	cmd.Printf("Done: %d changed, %d failed (kept original), %d untouched\n",
		len(mods)-failed, failed, len(cleaned)-len(mods))
	cmd.Printf("Cleaned motions: %s\nModification log: %s\n", opts.outputFile, opts.modsFile)
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
