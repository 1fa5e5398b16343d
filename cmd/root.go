// Package cmd defines and implements the CLI commands for the jobradar
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/logging"
	"github.com/jobradar/jobradar/internal/metrics"
)

var (
	cfgFile string

	cfg    config.Config
	logger *zap.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobradar",
		Short: "A job-posting aggregator with relevance scoring.",
		Long: `jobradar fetches job postings from configured RSS, JSON and HTML
feeds, scores them against a set of role categories, and keeps a
deduplicated history of everything it has seen. Results are served
over a small HTTP API and can be pushed to Telegram or Pub/Sub.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg = loaded

			logger, err = logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			metrics.Init()
			return nil
		},

		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./jobradar.yaml)")

	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newFeedsCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
