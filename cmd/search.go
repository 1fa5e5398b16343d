package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

func newSearchCmd() *cobra.Command {
	var (
		q          radar.Query
		remote     bool
		categories []string
		page       int
		perPage    int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Queries the persisted jobs",
		Long: `Searches the job store with the given filters and prints one line
per match. Score and category filters run against the values assigned
at fetch time.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("remote") {
				q.Remote = &remote
			}
			q.Categories = categories
			if page < 1 {
				page = 1
			}
			if perPage < 1 {
				perPage = 20
			}
			q.Offset = (page - 1) * perPage
			q.Limit = perPage

			store, err := buildStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer func() {
				if cerr := store.Close(); cerr != nil {
					logger.Warn("close storage", zap.Error(cerr))
				}
			}()

			result, err := store.Search(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			printRecords(result, page, perPage)
			return nil
		},
	}

	cmd.Flags().StringVar(&q.Title, "title", "", "substring match on the title")
	cmd.Flags().StringVar(&q.Company, "company", "", "substring match on the company")
	cmd.Flags().StringVar(&q.Source, "source", "", "exact feed name")
	cmd.Flags().StringVar(&q.Location, "location", "", "substring match on the location")
	cmd.Flags().StringVar(&q.JobType, "job-type", "", "exact job type")
	cmd.Flags().StringVar(&q.ExperienceLevel, "experience", "", "exact experience level")
	cmd.Flags().BoolVar(&remote, "remote", false, "remote positions only (or --remote=false for onsite)")
	cmd.Flags().IntVar(&q.SalaryMin, "salary-min", 0, "minimum parsed salary")
	cmd.Flags().IntVar(&q.SalaryMax, "salary-max", 0, "maximum parsed salary")
	cmd.Flags().IntVar(&q.MinScore, "min-score", 0, "minimum relevance score")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "matched category filter")
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "results per page")

	return cmd
}

func printRecords(result radar.SearchPage, page, perPage int) {
	if result.Total == 0 {
		fmt.Println("no matching jobs")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tTITLE\tCOMPANY\tSOURCE\tLOCATION\tURL")
	for _, rec := range result.Records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			rec.Job.Score, rec.Job.Title, rec.Job.Company, rec.Job.Source, rec.Job.Location, rec.Job.URL)
	}
	_ = w.Flush()

	pages := (result.Total + perPage - 1) / perPage
	fmt.Printf("\npage %d/%d, %d job(s) total\n", page, pages, result.Total)
	if len(result.Breakdown) > 0 {
		parts := make([]string, 0, len(result.Breakdown))
		for _, c := range sortedBreakdownKeys(result.Breakdown) {
			parts = append(parts, fmt.Sprintf("%s=%d", c, result.Breakdown[c]))
		}
		fmt.Println("categories:", strings.Join(parts, " "))
	}
}

func sortedBreakdownKeys(breakdown map[string]int) []string {
	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
