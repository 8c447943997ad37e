package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aaron1729/ai-debate/internal/llm"
	"github.com/aaron1729/ai-debate/internal/store"
)

// rootOptions carries the flags and lazily constructed dependencies shared by
// every subcommand.
type rootOptions struct {
	log *logrus.Logger

	dbPath     string
	modelsPath string
	verbose    bool
}

func (o *rootOptions) registry() (*llm.Registry, error) {
	if o.modelsPath == "" {
		return llm.DefaultRegistry(), nil
	}
	return llm.LoadRegistry(o.modelsPath)
}

func (o *rootOptions) openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(o.dbPath, o.log)
}

func newRootCmd(log *logrus.Logger) *cobra.Command {
	opts := &rootOptions{log: log}

	cmd := &cobra.Command{
		Use:   "ai-debate",
		Short: "Run LLM debates over factual claims and judge them",
		Long: `ai-debate orchestrates structured multi-turn debates between LLM agents
over factual claims and debate motions, persists the full transcripts in
SQLite, and supports retrospective judging of stored debates at arbitrary
turn cutoffs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", "experiments.db", "path to the SQLite experiment database")
	flags.StringVar(&opts.modelsPath, "models", "", "path to a model registry YAML (default: built-in registry)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newDebateCmd(opts),
		newSuiteCmd(opts),
		newRejudgeCmd(opts),
		newQueryCmd(opts),
		newStatsCmd(opts),
		newCleanMotionsCmd(opts),
	)
	return cmd
}
