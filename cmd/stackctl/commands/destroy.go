package commands

import (
	"github.com/spf13/cobra"

	"github.com/ideas-api/stackctl/cmd/stackctl/handlers"
)

// Destroy returns the destroy command.
//
// Destroy tears the environment down in reverse order. Cleanup steps are
// best-effort: each one runs even when earlier ones fail, because every
// removed resource is one less thing for the final terraform destroy to
// trip over. Only a failed destroy makes the command exit non-zero.
func Destroy() *cobra.Command {
	var (
		configPath  string
		environment string
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down the environment and all its resources",
		Long: `Destroy removes the environment in reverse deploy order:

  1. Workload ingress  - deleted first, then wait for its load balancer
                         to disappear from the account
  2. Ingress controller - helm uninstall
  3. Workload objects  - remaining Kubernetes manifests
  4. Registry          - delete all images so the repository can go
  5. Infrastructure    - terraform destroy

Steps 1-4 are best-effort; their failures are reported but do not stop the
teardown. If terraform destroy fails, fix the reported blocking dependency
and re-run this command.

Example:
  stackctl destroy -e staging

WARNING: This operation is irreversible. All environment data will be lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), configPath, environment)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional, defaults apply)")
	cmd.Flags().StringVarP(&environment, "env", "e", "dev", "Target environment name")

	return cmd
}
