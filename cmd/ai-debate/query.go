package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aaron1729/ai-debate/internal/models"
	"github.com/aaron1729/ai-debate/internal/store"
)

type queryOptions struct {
	id           int64
	topic        string
	judgeVerdict string
	minScore     int
	maxScore     int
	proModel     string
	conModel     string
	judgeModel   string
	gtVerdict    string
	full         bool
	judgments    bool
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	opts := &queryOptions{minScore: -1, maxScore: -1}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query stored experiments",
		Long: `List stored experiments matching the given filters, or show one experiment
in full with --id. All filters are AND-combined.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&opts.id, "id", 0, "show a single experiment by ID")
	flags.StringVar(&opts.topic, "topic", "", "filter by topic")
	flags.StringVar(&opts.judgeVerdict, "verdict", "", "filter by judge verdict")
	flags.IntVar(&opts.minScore, "min-score", -1, "filter by minimum judge score")
	flags.IntVar(&opts.maxScore, "max-score", -1, "filter by maximum judge score")
	flags.StringVar(&opts.proModel, "pro-model", "", "filter by pro model name")
	flags.StringVar(&opts.conModel, "con-model", "", "filter by con model name")
	flags.StringVar(&opts.judgeModel, "judge-model", "", "filter by judge model name")
	flags.StringVar(&opts.gtVerdict, "gt-verdict", "", "filter by ground-truth verdict")
	flags.BoolVar(&opts.full, "full", false, "print full transcripts")
	flags.BoolVar(&opts.judgments, "judgments", false, "include retrospective judgments (with --id)")

	return cmd
}

func runQuery(cmd *cobra.Command, root *rootOptions, opts *queryOptions) error {
	st, err := root.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.id > 0 {
		return queryOne(cmd, st, opts)
	}

	filters := store.Filters{
		Topic:        opts.topic,
		JudgeVerdict: opts.judgeVerdict,
		ProModel:     opts.proModel,
		ConModel:     opts.conModel,
		JudgeModel:   opts.judgeModel,
		GTVerdict:    opts.gtVerdict,
	}
	if opts.minScore >= 0 {
		filters.MinScore = models.IntPtr(opts.minScore)
	}
	if opts.maxScore >= 0 {
		filters.MaxScore = models.IntPtr(opts.maxScore)
	}

	records, err := st.Query(cmd.Context(), filters)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		cmd.Println("No experiments match.")
		return nil
	}

	for _, record := range records {
		printSummaryLine(cmd, record)
		if opts.full {
			printTranscript(cmd, record)
			cmd.Println()
		}
	}
	cmd.Printf("\n%d experiments.\n", len(records))
	return nil
}

func queryOne(cmd *cobra.Command, st *store.SQLiteStore, opts *queryOptions) error {
	record, err := st.GetByID(cmd.Context(), opts.id)
	if err != nil {
		return err
	}
	if record == nil {
		cmd.Printf("No experiment with ID %d.\n", opts.id)
		return nil
	}

	printSummaryLine(cmd, record)
	printTranscript(cmd, record)

	if opts.judgments {
		judgments, err := st.GetJudgments(cmd.Context(), store.JudgmentFilters{ExperimentID: &opts.id})
		if err != nil {
			return err
		}
		cmd.Printf("\n%d retrospective judgments:\n", len(judgments))
		for _, j := range judgments {
			score := "null"
			if j.Score != nil {
				score = strconv.Itoa(*j.Score)
			}
			cmd.Printf("  [%s @ %d turns] %s (score %s): %s\n",
				j.JudgeModel, j.TurnsConsidered, j.Verdict, score, j.Reasoning)
		}
	}
	return nil
}

func printSummaryLine(cmd *cobra.Command, record *models.DebateRecord) {
	verdict := "unjudged"
	if record.JudgeDecision != nil {
		verdict = string(record.JudgeDecision.Verdict)
		if record.JudgeDecision.Score != nil {
			verdict += " (" + strconv.Itoa(*record.JudgeDecision.Score) + "/10)"
		}
	}

	claim := record.Claim.Text
	if len(claim) > 60 {
		claim = claim[:57] + "..."
	}

	cmd.Printf("%s | %s vs %s | %d turns | %s | %s\n",
		record.Config.Timestamp.Format("2006-01-02 15:04"),
		record.Config.Models.Pro, record.Config.Models.Con,
		record.Config.Turns, verdict, claim)

	if len(record.ErrorsOrRefusals) > 0 {
		cmd.Printf("    %s\n", strings.Join(record.ErrorsOrRefusals, "; "))
	}
}

