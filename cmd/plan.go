package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/shiftmatch/config"
	"github.com/kilianp07/shiftmatch/core/planner"
)

var planOpts struct {
	desks     string
	operators string
	days      int
	out       string
	chart     bool
	strategy  string
	linger    time.Duration
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan shifts from desk and operator CSV files",
	RunE:  plan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planOpts.desks, "desks", "desks.csv", "desk requirement CSV")
	f.StringVar(&planOpts.operators, "operators", "operators.csv", "operator CSV")
	f.IntVar(&planOpts.days, "days", 0, "planning horizon in days (defaults to planner.horizon)")
	f.StringVarP(&planOpts.out, "out", "o", "out", "output directory")
	f.BoolVar(&planOpts.chart, "chart", false, "render the desk coverage chart")
	f.StringVar(&planOpts.strategy, "strategy", "", "matching strategy (da or greedy), overrides planner.strategy")
	f.DurationVar(&planOpts.linger, "linger", 0, "keep served metrics up for this long after planning")
	rootCmd.AddCommand(planCmd)
}

func plan(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(cmd, func(cfg *config.Config) {
		if planOpts.strategy != "" {
			cfg.Planner.Strategy = planOpts.strategy
		}
	})
	if err != nil {
		return err
	}
	defer closeService(svc)

	in, err := svc.LoadInput(planOpts.desks, planOpts.operators, planOpts.days)
	if err != nil {
		return err
	}
	rep, err := svc.Plan(ctx, in)
	if err != nil {
		return err
	}
	paths, err := svc.Export(rep, planOpts.out, planOpts.chart)
	if err != nil {
		return err
	}
	printSummary(cmd, rep)
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
	}
	if planOpts.linger > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "serving metrics for %s\n", planOpts.linger)
		select {
		case <-ctx.Done():
		case <-time.After(planOpts.linger):
		}
	}
	return nil
}

func printSummary(cmd *cobra.Command, rep *planner.Report) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run %s (%s, fingerprint %s)\n", rep.RunID, rep.Strategy, rep.Fingerprint.Short())
	fmt.Fprintf(w, "  assignments: %d\n", len(rep.Schedule.Assignments))
	fmt.Fprintf(w, "  unassigned:  %d\n", len(rep.Schedule.Unassigned))
	fmt.Fprintf(w, "  shortages:   %d desk slots, %d seats\n", len(rep.Shortages), rep.ShortSeats())
	fmt.Fprintf(w, "  overrides:   %d\n", len(rep.Overrides()))
	fmt.Fprintf(w, "  points:      %.3f total, mean %.3f, stddev %.3f\n", rep.Fairness.Total, rep.Fairness.Mean, rep.Fairness.StdDev)
}
