package main

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aaron1729/ai-debate/internal/claims"
	"github.com/aaron1729/ai-debate/internal/debate"
	"github.com/aaron1729/ai-debate/internal/models"
)

type debateOptions struct {
	claimSpec   string
	motionsFile string
	motionIndex int
	debater1    string
	debater2    string
	judge       string
	noJudge     bool
	rounds      int
	conFirst    bool
	seed        int64
}

func newDebateCmd(root *rootOptions) *cobra.Command {
	opts := &debateOptions{}

	cmd := &cobra.Command{
		Use:   "debate",
		Short: "Run a single debate",
		Long: `Run a single debate over a claim or a debate motion.

The claim comes either from --claim (a "path:index" spec into a claims JSON
file) or from a motions file, picking --motion by index or at random.
Debaters left unspecified are chosen randomly with replacement, so a model
may debate itself. With --no-judge the debate is stored unjudged, to be
evaluated later with the rejudge command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebate(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.claimSpec, "claim", "", `claim spec "path:index" (overrides motion selection)`)
	flags.StringVar(&opts.motionsFile, "motions-file", "data/debate_motions.json", "path to the debate motions JSON file")
	flags.IntVar(&opts.motionIndex, "motion", -1, "motion index (default: random)")
	flags.StringVar(&opts.debater1, "debater1", "", "pro debater model key (default: random)")
	flags.StringVar(&opts.debater2, "debater2", "", "con debater model key (default: random)")
	flags.StringVar(&opts.judge, "judge", "", "judge model key (default: no judge)")
	flags.BoolVar(&opts.noJudge, "no-judge", false, "store the debate unjudged even if --judge is set")
	flags.IntVar(&opts.rounds, "rounds", 6, "number of rounds (turns per side)")
	flags.BoolVar(&opts.conFirst, "con-first", false, "con debater opens each round")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed for reproducible selections (default: time-based)")

	return cmd
}

func runDebate(cmd *cobra.Command, root *rootOptions, opts *debateOptions) error {
	registry, err := root.registry()
	if err != nil {
		return err
	}
	st, err := root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed)) // #nosec G404

	claim, gt, err := resolveClaim(opts, rng)
	if err != nil {
		return err
	}

	keys := registry.Keys()
	proKey, conKey := opts.debater1, opts.debater2
	if proKey == "" {
		proKey = keys[rng.Intn(len(keys))]
	}
	if conKey == "" {
		conKey = keys[rng.Intn(len(keys))]
	}

	proGW, err := registry.Gateway(proKey)
	if err != nil {
		return fmt.Errorf("pro debater: %w", err)
	}
	conGW, err := registry.Gateway(conKey)
	if err != nil {
		return fmt.Errorf("con debater: %w", err)
	}
	pro := debate.NewDebater(models.PositionPro, proGW, registry.Name(proKey))
	con := debate.NewDebater(models.PositionCon, conGW, registry.Name(conKey))

	var judge *debate.Judge
	if opts.judge != "" && !opts.noJudge {
		judgeGW, err := registry.Gateway(opts.judge)
		if err != nil {
			return fmt.Errorf("judge: %w", err)
		}
		judge = debate.NewJudge(judgeGW, registry.Name(opts.judge))
	}

	printHeader(cmd, claim, registry.Name(proKey), registry.Name(conKey), opts, judge)

	orch := debate.NewOrchestrator(pro, con, judge, st, root.log)
	id, record, err := orch.Run(cmd.Context(), debate.RunParams{
		Claim:        claim,
		GroundTruth:  gt,
		Turns:        opts.rounds,
		ProWentFirst: !opts.conFirst,
	})
	if err != nil {
		return err
	}

	printTranscript(cmd, record)
	cmd.Printf("\nExperiment ID: %d\n", id)
	if record.JudgeDecision == nil {
		cmd.Printf("Judge this debate later with:\n  ai-debate rejudge --experiment-ids %d --judges <keys>\n", id)
	}
	return nil
}

func resolveClaim(opts *debateOptions, rng *rand.Rand) (models.Claim, *models.GroundTruth, error) {
	if opts.claimSpec != "" {
		return claims.Load(opts.claimSpec)
	}

	motions, err := claims.LoadMotions(opts.motionsFile)
	if err != nil {
		return models.Claim{}, nil, err
	}
	motion, idx, err := claims.PickMotion(motions, opts.motionIndex, rng)
	if err != nil {
		return models.Claim{}, nil, err
	}
	claim, gt := motion.Claim(opts.motionsFile, idx)
	return claim, gt, nil
}

var (
	proColor     = color.New(color.FgGreen, color.Bold)
	conColor     = color.New(color.FgRed, color.Bold)
	refusedColor = color.New(color.FgYellow, color.Bold)
	judgeColor   = color.New(color.FgCyan, color.Bold)
	dimColor     = color.New(color.Faint)
)

func printHeader(cmd *cobra.Command, claim models.Claim, proName, conName string, opts *debateOptions, judge *debate.Judge) {
	rule := strings.Repeat("=", 80)
	cmd.Println(rule)
	cmd.Printf("Claim: %s\n", claim.Text)
	if claim.Topic != "" {
		cmd.Printf("Topic: %s\n", claim.Topic)
	}
	cmd.Printf("Pro:   %s\n", proName)
	cmd.Printf("Con:   %s\n", conName)
	cmd.Printf("Rounds: %d, going first: %s\n", opts.rounds, map[bool]string{true: "con", false: "pro"}[opts.conFirst])
	if judge != nil {
		cmd.Printf("Judge: %s\n", judge.ModelName())
	} else {
		cmd.Println("Judge: none (judge later via rejudge)")
	}
	cmd.Println(rule)
}

func printTranscript(cmd *cobra.Command, record *models.DebateRecord) {
	out := cmd.OutOrStdout()

	for _, entry := range record.Transcript {
		side := proColor
		if entry.Position == models.PositionCon {
			side = conColor
		}
		fmt.Fprintln(out)
		side.Fprintf(out, "[Round %d] %s (%s)\n", entry.Turn, strings.ToUpper(string(entry.Position)), entry.Model)

		if entry.Refused {
			refusedColor.Fprintln(out, "  REFUSED TO ARGUE")
			fmt.Fprintf(out, "  Reason: %s\n", entry.RefusalReason)
			continue
		}
		fmt.Fprintf(out, "  %s\n", entry.Argument)
		dimColor.Fprintf(out, "  Source: %q (%s)\n", entry.Quote, entry.URL)
	}

	if dec := record.JudgeDecision; dec != nil {
		fmt.Fprintln(out)
		judgeColor.Fprintf(out, "VERDICT: %s", dec.Verdict)
		if dec.Score != nil {
			judgeColor.Fprintf(out, " (pro score %d/10)", *dec.Score)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Reasoning: %s\n", dec.Reasoning)
	}

	for _, event := range record.ErrorsOrRefusals {
		refusedColor.Fprintf(out, "\nNote: %s\n", event)
	}
}
