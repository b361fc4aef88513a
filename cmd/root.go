package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/shiftmatch/app"
	"github.com/kilianp07/shiftmatch/config"
	"github.com/kilianp07/shiftmatch/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "shiftmatch",
	Short:         "Desk shift planner",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML or JSON)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// newService loads the configuration, applies the flag overrides and builds
// the service.
func newService(cmd *cobra.Command, overrides ...func(*config.Config)) (*app.Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cfg, cmd.ErrOrStderr())
}

func closeService(svc *app.Service) {
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
}
