package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/ideas-api/stackctl/internal/backend"
	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/controller"
	"github.com/ideas-api/stackctl/internal/kube"
	"github.com/ideas-api/stackctl/internal/orchestrate"
	"github.com/ideas-api/stackctl/internal/pipeline"
	"github.com/ideas-api/stackctl/internal/platform/aws"
	"github.com/ideas-api/stackctl/internal/registry"
	"github.com/ideas-api/stackctl/internal/terraform"
	"github.com/ideas-api/stackctl/internal/util/prerequisites"
)

// deployRunner matches orchestrate.Deploy.
type deployRunner interface {
	Run(ctx context.Context) *pipeline.Result
}

// Factory function variables for deploy - can be replaced in tests.
var (
	checkDeployPrereqs = prerequisites.CheckForDeploy

	checkOptionalTools = func() *prerequisites.CheckResults {
		return prerequisites.Check(prerequisites.OptionalTools())
	}

	newDeployRunner = func(ctx context.Context, cfg *config.Config, autoApprove bool) (deployRunner, error) {
		client, err := aws.NewClient(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}

		observer := newObserver()
		return orchestrate.NewDeploy(
			cfg,
			observer,
			backend.New(client, cfg.Backend, cfg.Timeouts, observer),
			terraform.NewRunner(cfg, observer),
			controller.New(client, kube.NewHelmClient(), cfg, observer),
			registry.New(client, cfg.Registry, cfg.Timeouts, observer),
			orchestrate.NewDeployerFactory(client, cfg, observer),
			autoApprove,
		), nil
	}
)

// Deploy handles the deploy command.
//
// It verifies the required local tooling, loads the environment
// configuration, and runs the provisioning pipeline. The first fatal stage
// failure is returned as the command error.
func Deploy(ctx context.Context, configPath, environment string, autoApprove bool) error {
	if err := checkDeployPrereqs().Error(); err != nil {
		return err
	}
	for _, tool := range checkOptionalTools().Missing {
		log.Printf("optional tool %s not found (%s)", tool.Name, tool.Description)
	}

	cfg, err := loadConfig(configPath, environment)
	if err != nil {
		return err
	}

	log.Printf("Deploying %s to %s (%s)", cfg.Project, cfg.Environment, cfg.Region)

	runner, err := newDeployRunner(ctx, cfg, autoApprove)
	if err != nil {
		return err
	}

	result := runner.Run(ctx)
	if err := result.FirstFailure(); err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	if url := result.Outputs[orchestrate.OutputRegistryURL]; url != "" {
		log.Printf("image repository: %s", url)
	}
	if name := result.Outputs[orchestrate.OutputClusterName]; name != "" {
		log.Printf("cluster: %s (%s)", name, result.Outputs[orchestrate.OutputClusterEndpoint])
	}
	log.Printf("Environment %s deployed", cfg.ClusterName())
	return nil
}
