package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

const summaryRounding = 10 * time.Millisecond

func newFetchCmd() *cobra.Command {
	var (
		feedNames   []string
		smartFilter bool
		minScore    int
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Runs one fetch cycle across the configured feeds",
		Long: `Fetches every configured feed once, scores and persists the results,
and prints a per-feed summary. Use --feed to restrict the cycle to a
subset of feeds.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(feedNames) > 0 {
				selected, err := selectFeeds(feedNames)
				if err != nil {
					return err
				}
				cfg.Feeds = selected
			}
			if cmd.Flags().Changed("smart-filter") {
				cfg.SmartFilter.Enabled = smartFilter
			}
			if cmd.Flags().Changed("min-score") {
				cfg.SmartFilter.MinScore = minScore
			}

			store, err := buildStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					logger.Warn("close storage", zap.Error(cerr))
				}
			}()

			p, cleanup, err := buildPipeline(cmd.Context(), store)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := pipelineOptions()
			opts.FeedLimit = limit

			summary, err := p.RunCycle(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("run fetch cycle: %w", err)
			}

			printSummary(summary)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&feedNames, "feed", nil, "restrict the cycle to the named feed(s)")
	cmd.Flags().BoolVar(&smartFilter, "smart-filter", true, "drop records below the relevance threshold")
	cmd.Flags().IntVar(&minScore, "min-score", 1, "minimum relevance score to keep")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap on records taken per feed (0 = no cap)")

	return cmd
}

func selectFeeds(names []string) ([]radar.Feed, error) {
	byName := make(map[string]radar.Feed, len(cfg.Feeds))
	for _, feed := range cfg.Feeds {
		byName[feed.Name] = feed
	}
	selected := make([]radar.Feed, 0, len(names))
	for _, name := range names {
		feed, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown feed %q", name)
		}
		selected = append(selected, feed)
	}
	return selected, nil
}

func printSummary(summary radar.CycleSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FEED\tSTATUS\tFETCHED\tKEPT\tPERSISTED\tNEW\tERROR")
	for _, r := range summary.Results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.Feed, r.Status, r.Fetched, r.Kept, r.Persisted, r.Inserted, r.Error)
	}
	_ = w.Flush()
	fmt.Printf("\n%d new job(s) in %s\n", len(summary.Inserted), summary.Duration.Round(summaryRounding))
}
