package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/shiftmatch/core/constraint"
	"github.com/kilianp07/shiftmatch/core/fingerprint"
)

var constraintsCmd = &cobra.Command{
	Use:   "constraints",
	Short: "List the supported constraint kinds and their defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tDEFAULTS\tDESCRIPTION")
		for _, d := range constraint.Catalogue() {
			params := ""
			for i, k := range fingerprint.SortedKeys(d.Defaults) {
				if i > 0 {
					params += " "
				}
				params += fmt.Sprintf("%s=%v", k, d.Defaults[k])
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Kind, params, d.Summary)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(constraintsCmd)
}
