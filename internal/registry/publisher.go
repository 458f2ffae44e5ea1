// Package registry builds and publishes the workload image and purges the
// repository ahead of infrastructure teardown.
package registry

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/pipeline"
	"github.com/ideas-api/stackctl/internal/platform/aws"
	"github.com/ideas-api/stackctl/internal/resource"
	"github.com/ideas-api/stackctl/internal/util/retry"
)

// runDocker executes the docker binary. Replaced in tests. Stdin carries the
// registry password for login so it never appears in an argument list.
var runDocker = func(ctx context.Context, stdin string, args ...string) error {
	// #nosec G204 - args are built from internal config, not user input
	cmd := exec.CommandContext(ctx, "docker", args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker %s failed: %w", args[0], err)
	}
	return nil
}

// Registry covers the repository operations the publisher needs.
type Registry interface {
	RepositoryExists(ctx context.Context, repositoryName string) (resource.Existence, error)
	RegistryAuthToken(ctx context.Context) (*aws.RegistryAuth, error)
	ListImageIDs(ctx context.Context, repositoryName string) ([]ecrtypes.ImageIdentifier, error)
	BatchDeleteImages(ctx context.Context, repositoryName string, ids []ecrtypes.ImageIdentifier) error
}

// Publisher builds the workload image and pushes it as the single mutable
// tag the deployment references.
type Publisher struct {
	registry Registry
	cfg      config.RegistryConfig
	timeouts *config.Timeouts
	observer pipeline.Observer
}

// New creates a publisher.
func New(registry Registry, cfg config.RegistryConfig, timeouts *config.Timeouts, observer pipeline.Observer) *Publisher {
	return &Publisher{registry: registry, cfg: cfg, timeouts: timeouts, observer: observer}
}

// Publish logs into the registry, builds the image, and pushes it to the
// repository URL under the configured tag.
func (p *Publisher) Publish(ctx context.Context, repositoryURL string) error {
	auth, err := p.registry.RegistryAuthToken(ctx)
	if err != nil {
		return err
	}

	if err := runDocker(ctx, auth.Password,
		"login", "--username", auth.Username, "--password-stdin", auth.Endpoint); err != nil {
		return err
	}

	imageRef := fmt.Sprintf("%s:%s", repositoryURL, p.cfg.Tag)
	if err := runDocker(ctx, "", "build", "-t", imageRef, p.cfg.BuildContext); err != nil {
		return err
	}

	// Pushes fail transiently on registry hiccups; the build result is local
	// so only the push is retried.
	err = retry.WithExponentialBackoff(ctx, func() error {
		return runDocker(ctx, "", "push", imageRef)
	}, retry.WithMaxRetries(p.timeouts.RetryMaxAttempts), retry.WithInitialDelay(p.timeouts.RetryInitialDelay))
	if err != nil {
		return err
	}

	p.logf("pushed %s", imageRef)
	return nil
}

// PurgeAll deletes every image in the repository so the repository itself can
// be destroyed. An empty or missing repository is a no-op success.
func (p *Publisher) PurgeAll(ctx context.Context) error {
	ids, err := p.registry.ListImageIDs(ctx, p.cfg.Repository)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		p.logf("repository %s is already empty", p.cfg.Repository)
		return nil
	}

	if err := p.registry.BatchDeleteImages(ctx, p.cfg.Repository, ids); err != nil {
		return err
	}
	p.logf("purged %d images from %s", len(ids), p.cfg.Repository)
	return nil
}

// RepositoryExists probes for the repository.
func (p *Publisher) RepositoryExists(ctx context.Context) (resource.Existence, error) {
	return p.registry.RepositoryExists(ctx, p.cfg.Repository)
}

func (p *Publisher) logf(format string, v ...interface{}) {
	if p.observer != nil {
		p.observer.Printf(format, v...)
	}
}
