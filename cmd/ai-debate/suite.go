package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/aaron1729/ai-debate/internal/claims"
	"github.com/aaron1729/ai-debate/internal/runner"
)

type suiteOptions struct {
	debater1    string
	debater2    string
	judge       string
	randomized  int
	claimFiles  []string
	seed        int64
	concurrency int
}

func newSuiteCmd(root *rootOptions) *cobra.Command {
	opts := &suiteOptions{}

	cmd := &cobra.Command{
		Use:   "suite [claim-spec]",
		Short: "Run the 2x8 experiment suite for a claim",
		Long: `Run the full experiment suite for one claim: four turn counts (1, 2, 4, 6)
in two configurations (each debater takes a turn arguing pro), all judged
inline. The claim spec has the form "path:index".

With --randomized N, instead run N suites over random claims from the
--claims files, with a distinct random model triple per suite.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, root, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.debater1, "debater1", "", "first debater model key")
	flags.StringVar(&opts.debater2, "debater2", "", "second debater model key")
	flags.StringVar(&opts.judge, "judge", "", "judge model key")
	flags.IntVarP(&opts.randomized, "randomized", "n", 0, "run this many randomized suites instead of a single claim")
	flags.StringSliceVar(&opts.claimFiles, "claims", nil, "claims JSON files for randomized mode")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed for randomized mode (default: time-based)")
	flags.IntVar(&opts.concurrency, "concurrency", 2, "parallel suites in randomized mode")

	return cmd
}

func runSuite(cmd *cobra.Command, root *rootOptions, opts *suiteOptions, args []string) error {
	registry, err := root.registry()
	if err != nil {
		return err
	}
	st, err := root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	r := runner.NewRunner(registry, st, root.log)
	r.Concurrency = opts.concurrency

	if opts.randomized > 0 {
		return runRandomized(cmd, r, opts)
	}

	if len(args) != 1 {
		return fmt.Errorf("a claim spec is required (or use --randomized)")
	}
	if opts.debater1 == "" || opts.debater2 == "" || opts.judge == "" {
		return fmt.Errorf("--debater1, --debater2 and --judge are required")
	}

	claim, gt, err := claims.Load(args[0])
	if err != nil {
		return err
	}

	ids, err := r.RunSuite(cmd.Context(), runner.SuiteParams{
		Claim:       claim,
		GroundTruth: gt,
		Debater1:    opts.debater1,
		Debater2:    opts.debater2,
		Judge:       opts.judge,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Suite complete: %d experiments\n", len(ids))
	for _, id := range ids {
		cmd.Printf("  experiment %d\n", id)
	}
	return nil
}

func runRandomized(cmd *cobra.Command, r *runner.Runner, opts *suiteOptions) error {
	if len(opts.claimFiles) == 0 {
		return fmt.Errorf("--claims is required in randomized mode")
	}

	datasets := make([]runner.Dataset, 0, len(opts.claimFiles))
	for _, path := range opts.claimFiles {
		size, err := claims.Count(path)
		if err != nil {
			return err
		}
		datasets = append(datasets, runner.Dataset{Path: path, Size: size})
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cmd.Printf("Randomized batch of %d suites (seed %d)\n", opts.randomized, seed)

	summary, err := r.RunRandomizedBatch(cmd.Context(), runner.BatchParams{
		Count:    opts.randomized,
		Datasets: datasets,
		Rand:     rand.New(rand.NewSource(seed)), // #nosec G404
	})
	if err != nil {
		return err
	}

	cmd.Printf("Batch complete: %d suites succeeded, %d failed, %d experiments stored\n",
		summary.Succeeded, summary.Failed, len(summary.ExperimentIDs))
	return nil
}
