package commands

import (
	"github.com/spf13/cobra"

	"github.com/ideas-api/stackctl/cmd/stackctl/handlers"
)

// Deploy returns the deploy command.
//
// Deploy runs the full provisioning pipeline for one environment. Every
// stage checks whether its resource already exists, so re-running a deploy
// after a failure picks up where it left off.
func Deploy() *cobra.Command {
	var (
		configPath  string
		environment string
		autoApprove bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the full environment",
		Long: `Deploy provisions the environment end to end:

  1. State backend  - S3 bucket and DynamoDB lock table for Terraform state
  2. Infrastructure - terraform apply (VPC, EKS cluster, ECR repository)
  3. Ingress        - AWS load balancer controller with IAM federation
  4. Image          - docker build and push to the ECR repository
  5. Workload       - Kubernetes manifests, then wait for the rollout

Stages are idempotent: resources that already exist are left alone, so a
failed deploy can simply be re-run.

Example:
  stackctl deploy -e staging
  stackctl deploy -e prod -c stackctl.yaml --auto-approve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), configPath, environment, autoApprove)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (optional, defaults apply)")
	cmd.Flags().StringVarP(&environment, "env", "e", "dev", "Target environment name")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Apply infrastructure changes without the interactive confirmation")

	return cmd
}
