// Package orchestrate assembles the deploy and teardown pipelines from the
// stage implementations.
package orchestrate

import (
	"context"
	"sync"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/kube"
	"github.com/ideas-api/stackctl/internal/pipeline"
	"github.com/ideas-api/stackctl/internal/platform/aws"
	"github.com/ideas-api/stackctl/internal/resource"
	"github.com/ideas-api/stackctl/internal/terraform"
	"github.com/ideas-api/stackctl/internal/util/wait"
	"github.com/ideas-api/stackctl/internal/workload"
)

// StateBootstrapper prepares the remote state store.
type StateBootstrapper interface {
	Ready(ctx context.Context) (bool, error)
	Ensure(ctx context.Context) error
}

// Provisioner drives the infrastructure tool.
type Provisioner interface {
	Init(ctx context.Context) error
	Apply(ctx context.Context, autoApprove bool) error
	Destroy(ctx context.Context) error
	Outputs(ctx context.Context) (*terraform.Outputs, error)
}

// ControllerInstaller manages the ingress controller release.
type ControllerInstaller interface {
	Installed(ctx context.Context) (resource.Existence, error)
	Install(ctx context.Context) error
	Uninstall(ctx context.Context) error
}

// ImagePublisher pushes and purges workload images.
type ImagePublisher interface {
	Publish(ctx context.Context, repositoryURL string) error
	PurgeAll(ctx context.Context) error
	RepositoryExists(ctx context.Context) (resource.Existence, error)
}

// WorkloadDeployer applies and removes the workload manifests.
type WorkloadDeployer interface {
	Apply(ctx context.Context) error
	RolloutCondition() *wait.Condition
	IngressAddressCondition() *wait.Condition
	IngressGone(ctx context.Context) (bool, error)
	DeleteIngress(ctx context.Context) error
	DeleteAll(ctx context.Context) error
	Deployed(ctx context.Context) (resource.Existence, error)
}

// LoadBalancers probes for controller-owned load balancers.
type LoadBalancers interface {
	ClusterLoadBalancerGone(ctx context.Context, clusterName string) (bool, error)
}

// DeployerFactory builds a workload deployer. The cluster has to exist
// before a deployer can be built, so construction is deferred until a stage
// actually needs one.
type DeployerFactory func(ctx context.Context) (WorkloadDeployer, error)

// NewDeployerFactory returns the production factory: cluster lookup,
// in-memory kubeconfig, then a client against the live cluster.
func NewDeployerFactory(client *aws.Client, cfg *config.Config, observer pipeline.Observer) DeployerFactory {
	return func(ctx context.Context) (WorkloadDeployer, error) {
		info, err := client.DescribeCluster(ctx, cfg.ClusterName())
		if err != nil {
			return nil, err
		}

		kubeconfig, err := kube.Kubeconfig(info, cfg.Region)
		if err != nil {
			return nil, err
		}

		kc, err := kube.NewClient(kubeconfig)
		if err != nil {
			return nil, err
		}

		return workload.New(kc, cfg, observer), nil
	}
}

// memoize caches the first successfully built deployer. Failures are not
// cached so a later stage can retry once the cluster is reachable.
func memoize(factory DeployerFactory) DeployerFactory {
	var mu sync.Mutex
	var cached WorkloadDeployer

	return func(ctx context.Context) (WorkloadDeployer, error) {
		mu.Lock()
		defer mu.Unlock()

		if cached != nil {
			return cached, nil
		}
		d, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		cached = d
		return cached, nil
	}
}
