package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and input files without planning",
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer closeService(svc)

		in, err := svc.LoadInput(planOpts.desks, planOpts.operators, planOpts.days)
		if err != nil {
			return err
		}
		if _, _, err := svc.Planner.Validate(in); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d desks, %d operators, %d days, fingerprint %s\n",
			len(in.Desks), len(in.Operators), in.Horizon, svc.Planner.Fingerprint(in).Short())
		return nil
	},
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&planOpts.desks, "desks", "desks.csv", "desk requirement CSV")
	f.StringVar(&planOpts.operators, "operators", "operators.csv", "operator CSV")
	f.IntVar(&planOpts.days, "days", 0, "planning horizon in days (defaults to planner.horizon)")
	rootCmd.AddCommand(validateCmd)
}
