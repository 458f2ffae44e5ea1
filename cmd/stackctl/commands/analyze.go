package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ideas-api/stackctl/cmd/stackctl/handlers"
)

// Analyze returns the analyze command.
func Analyze() *cobra.Command {
	var (
		configPath  string
		environment string
		window      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Inspect workload health and recent logs",
		Long: `Analyze reads the workload deployment's replica state and scans the
environment's CloudWatch logs over a recent window, then prints a severity
assessment and remediation guidance.

Example:
  stackctl analyze -e staging
  stackctl analyze -e prod --window 1h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Analyze(cmd.Context(), configPath, environment, window)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional, defaults apply)")
	cmd.Flags().StringVarP(&environment, "env", "e", "dev", "Target environment name")
	cmd.Flags().DurationVar(&window, "window", 15*time.Minute, "How far back to scan logs")

	return cmd
}
