package commands

import (
	"github.com/spf13/cobra"

	"github.com/ideas-api/stackctl/cmd/stackctl/handlers"
)

// Outputs returns the outputs command. It only reads state, so it can run
// at any time after a successful deploy.
func Outputs() *cobra.Command {
	var (
		configPath  string
		environment string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print the provisioning outputs for an environment",
		Long: `Outputs prints the registry URL, cluster name, and cluster endpoint
recorded in the environment's Terraform state.

Example:
  stackctl outputs -e staging
  stackctl outputs -e staging --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Outputs(cmd.Context(), configPath, environment, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional, defaults apply)")
	cmd.Flags().StringVarP(&environment, "env", "e", "dev", "Target environment name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print outputs as JSON")

	return cmd
}
