package handlers

import (
	"context"
	"errors"
	"log"

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

// teardownRunner matches orchestrate.Teardown.
type teardownRunner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Factory function variables for destroy - can be replaced in tests.
var (
	checkDestroyPrereqs = prerequisites.CheckForDestroy

	newTeardownRunner = func(ctx context.Context, cfg *config.Config) (teardownRunner, error) {
		client, err := aws.NewClient(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}

		observer := newObserver()
		return orchestrate.NewTeardown(
			cfg,
			observer,
			terraform.NewRunner(cfg, observer),
			controller.New(client, kube.NewHelmClient(), cfg, observer),
			registry.New(client, cfg.Registry, cfg.Timeouts, observer),
			orchestrate.NewDeployerFactory(client, cfg, observer),
			client,
		), nil
	}
)

// Destroy handles the destroy command.
//
// Cleanup failures are logged but only a failed infrastructure destroy makes
// the command fail. A destroy failure is never retried automatically; the
// printed hint names the likely blocking dependency and re-running the
// command is the recovery path.
func Destroy(ctx context.Context, configPath, environment string) error {
	if err := checkDestroyPrereqs().Error(); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath, environment)
	if err != nil {
		return err
	}

	log.Printf("Destroying %s in %s (%s)", cfg.Project, cfg.Environment, cfg.Region)

	runner, err := newTeardownRunner(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		var destroyErr *terraform.DestroyError
		if errors.As(err, &destroyErr) && destroyErr.Hint != "" {
			log.Printf("hint: %s", destroyErr.Hint)
		}
		log.Printf("fix the blocking dependency and re-run 'stackctl destroy -e %s'", environment)
		return err
	}

	if first := result.FirstFailure(); first != nil {
		log.Printf("teardown finished with warnings: %v", first)
	}
	log.Printf("Environment %s destroyed", cfg.ClusterName())
	return nil
}
