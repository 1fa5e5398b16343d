package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFeedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "Lists the configured feeds",

		RunE: func(*cobra.Command, []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFORMAT\tIDENTITY\tRENDER\tRPM\tURL")
			for _, feed := range cfg.Feeds {
				rpm := "unlimited"
				if feed.RequestsPerMinute > 0 {
					rpm = fmt.Sprintf("%d", feed.RequestsPerMinute)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n",
					feed.Name, feed.Format, feed.Identity, feed.Render, rpm, feed.URL)
			}
			return w.Flush()
		},
	}
}
