package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aaron1729/ai-debate/internal/debate"
	"github.com/aaron1729/ai-debate/internal/rejudge"
)

type rejudgeOptions struct {
	experimentIDs []int64
	judges        []string
	cutoffs       []int
	repeat        int
}

func newRejudgeCmd(root *rootOptions) *cobra.Command {
	opts := &rejudgeOptions{}

	cmd := &cobra.Command{
		Use:   "rejudge",
		Short: "Judge stored debates retrospectively",
		Long: `Re-evaluate stored debates with one or more judges at one or more turn
cutoffs. Each (judge, cutoff) pair appends an independent judgment; cutoffs
beyond a debate's length are skipped. Use "all" as a judge key to run every
registered model, and --repeat to measure judge self-consistency.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRejudge(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.Int64SliceVar(&opts.experimentIDs, "experiment-ids", nil, "experiment IDs to rejudge")
	flags.StringSliceVar(&opts.judges, "judges", nil, `judge model keys ("all" for every registered model)`)
	flags.IntSliceVar(&opts.cutoffs, "turns", []int{1, 2, 4, 6}, "turn cutoffs to judge at")
	flags.IntVar(&opts.repeat, "repeat", 1, "judgments per (judge, cutoff) pair")

	return cmd
}

func runRejudge(cmd *cobra.Command, root *rootOptions, opts *rejudgeOptions) error {
	if len(opts.experimentIDs) == 0 {
		return fmt.Errorf("--experiment-ids is required")
	}
	if len(opts.judges) == 0 {
		return fmt.Errorf("--judges is required")
	}
	if opts.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", opts.repeat)
	}

	registry, err := root.registry()
	if err != nil {
		return err
	}
	st, err := root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	judgeKeys := opts.judges
	if len(judgeKeys) == 1 && judgeKeys[0] == "all" {
		judgeKeys = registry.Keys()
	}

	var judges []*debate.Judge
	for _, key := range judgeKeys {
		gw, err := registry.Gateway(key)
		if err != nil {
			return fmt.Errorf("judge %s: %w", key, err)
		}
		judges = append(judges, debate.NewJudge(gw, registry.Name(key)))
	}

	engine := rejudge.NewEngine(st, root.log)

	var total rejudge.Summary
	for i := 0; i < opts.repeat; i++ {
		summary := engine.RejudgeMany(cmd.Context(), opts.experimentIDs, judges, opts.cutoffs)
		total.Created += summary.Created
		total.Failed += summary.Failed
		total.Skipped += summary.Skipped
	}

	cmd.Printf("Rejudge complete: %d judgments created, %d failed, %d skipped\n",
		total.Created, total.Failed, total.Skipped)
	return nil
}
