package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent planning runs from the run log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer closeService(svc)

		recs, err := svc.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tRUN\tSTRATEGY\tASSIGNED\tSHORT\tPOINTS\tCACHE\tERROR")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%t\t%s\n",
				r.Timestamp.Format(time.RFC3339), r.RunID, r.Strategy, r.Assignments,
				r.ShortSeats, r.Points, r.CacheHit, r.Error)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
