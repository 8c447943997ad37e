package main

import (
	"github.com/spf13/cobra"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var experimentID int64

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate experiment and judgment statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := root.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			cmd.Printf("Experiments: %d\n", stats.TotalExperiments)
			if len(stats.ByVerdict) > 0 {
				cmd.Println("By judge verdict:")
				for verdict, count := range stats.ByVerdict {
					cmd.Printf("  %-20s %d\n", verdict, count)
				}
			}
			if len(stats.ByTopic) > 0 {
				cmd.Println("By topic:")
				for topic, count := range stats.ByTopic {
					cmd.Printf("  %-20s %d\n", topic, count)
				}
			}
			if stats.AverageScore != nil {
				cmd.Printf("Average pro score: %.2f\n", *stats.AverageScore)
			}

			var scope *int64
			if experimentID > 0 {
				scope = &experimentID
			}
			jstats, err := st.JudgmentStats(cmd.Context(), scope)
			if err != nil {
				return err
			}

			cmd.Printf("\nRetrospective judgments: %d\n", jstats.TotalJudgments)
			for judge, count := range jstats.ByJudgeModel {
				cmd.Printf("  %-20s %d\n", judge, count)
			}
			if len(jstats.ByTurnsConsidered) > 0 {
				cmd.Println("By turn cutoff:")
				for turns, count := range jstats.ByTurnsConsidered {
					cmd.Printf("  %d turns: %d\n", turns, count)
				}
			}
			if jstats.PerfectAgreementRate != nil {
				cmd.Printf("Perfect verdict agreement: %.1f%% of multiply-judged cutoffs\n",
					100**jstats.PerfectAgreementRate)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&experimentID, "id", 0, "scope judgment stats to one experiment")
	return cmd
}
