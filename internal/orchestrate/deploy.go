package orchestrate

import (
	"context"
	"fmt"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/pipeline"
	"github.com/ideas-api/stackctl/internal/resource"
	"github.com/ideas-api/stackctl/internal/terraform"
	"github.com/ideas-api/stackctl/internal/util/wait"
)

// Output keys exposed on the deploy result.
const (
	OutputRegistryURL     = "registry_url"
	OutputClusterName     = "cluster_name"
	OutputClusterEndpoint = "cluster_endpoint"
)

// Deploy runs the full provisioning sequence: state backend, infrastructure,
// ingress controller, image, workload. Every stage is fail-fast; a failure
// skips everything after it.
type Deploy struct {
	cfg         *config.Config
	observer    pipeline.Observer
	backend     StateBootstrapper
	tf          Provisioner
	installer   ControllerInstaller
	publisher   ImagePublisher
	deployerFor DeployerFactory
	autoApprove bool

	outputs *terraform.Outputs
}

// NewDeploy assembles a deploy orchestration.
func NewDeploy(
	cfg *config.Config,
	observer pipeline.Observer,
	backend StateBootstrapper,
	tf Provisioner,
	installer ControllerInstaller,
	publisher ImagePublisher,
	deployerFor DeployerFactory,
	autoApprove bool,
) *Deploy {
	return &Deploy{
		cfg:         cfg,
		observer:    observer,
		backend:     backend,
		tf:          tf,
		installer:   installer,
		publisher:   publisher,
		deployerFor: memoize(deployerFor),
		autoApprove: autoApprove,
	}
}

// Run executes the deploy pipeline and returns its result. The result's
// outputs carry the provisioning outputs for the CLI to print.
func (d *Deploy) Run(ctx context.Context) *pipeline.Result {
	p := pipeline.New("deploy "+d.cfg.Environment, d.stages())
	if d.observer != nil {
		p.Observer = d.observer
	}

	result := p.Run(ctx)
	if d.outputs != nil {
		result.Outputs[OutputRegistryURL] = d.outputs.RegistryURL
		result.Outputs[OutputClusterName] = d.outputs.ClusterName
		result.Outputs[OutputClusterEndpoint] = d.outputs.ClusterEndpoint
	}
	return result
}

func (d *Deploy) stages() []pipeline.Stage {
	return []pipeline.Stage{
		{
			Name:   "state-backend",
			Policy: pipeline.FailFast,
			Check:  d.backend.Ready,
			Run:    d.backend.Ensure,
		},
		{
			Name:   "infrastructure",
			Policy: pipeline.FailFast,
			Run:    d.provision,
		},
		{
			Name:   "ingress-controller",
			Policy: pipeline.FailFast,
			Check: func(ctx context.Context) (bool, error) {
				state, err := d.installer.Installed(ctx)
				return state == resource.Present, err
			},
			Run: d.installer.Install,
		},
		{
			Name:   "workload-image",
			Policy: pipeline.FailFast,
			Run:    d.publishImage,
		},
		{
			Name:   "workload",
			Policy: pipeline.FailFast,
			Run:    d.applyWorkload,
			Post:   d.rolloutCondition(),
		},
		{
			Name:   "ingress-address",
			Policy: pipeline.FailFast,
			Post:   d.ingressCondition(),
		},
	}
}

// provision applies the infrastructure and captures its outputs for the
// stages after it.
func (d *Deploy) provision(ctx context.Context) error {
	if err := d.tf.Init(ctx); err != nil {
		return err
	}
	if err := d.tf.Apply(ctx, d.autoApprove); err != nil {
		return err
	}

	outputs, err := d.tf.Outputs(ctx)
	if err != nil {
		return err
	}
	d.outputs = outputs
	return nil
}

func (d *Deploy) publishImage(ctx context.Context) error {
	if d.outputs == nil {
		return fmt.Errorf("no provisioning outputs; infrastructure stage did not run")
	}
	return d.publisher.Publish(ctx, d.outputs.RegistryURL)
}

func (d *Deploy) applyWorkload(ctx context.Context) error {
	deployer, err := d.deployerFor(ctx)
	if err != nil {
		return err
	}
	return deployer.Apply(ctx)
}

// rolloutCondition proxies the deployer's rollout wait through the lazily
// built deployer.
func (d *Deploy) rolloutCondition() *wait.Condition {
	attempts := int(d.cfg.Timeouts.RolloutTimeout / d.cfg.Timeouts.RolloutInterval)
	if attempts < 1 {
		attempts = 1
	}
	return &wait.Condition{
		Name: "workload-rollout",
		Probe: func(ctx context.Context) (bool, error) {
			deployer, err := d.deployerFor(ctx)
			if err != nil {
				return false, err
			}
			return deployer.RolloutCondition().Probe(ctx)
		},
		Interval:    d.cfg.Timeouts.RolloutInterval,
		MaxAttempts: attempts,
		OnTimeout:   wait.Fatal,
	}
}

func (d *Deploy) ingressCondition() *wait.Condition {
	return &wait.Condition{
		Name: "ingress-address",
		Probe: func(ctx context.Context) (bool, error) {
			deployer, err := d.deployerFor(ctx)
			if err != nil {
				return false, err
			}
			return deployer.IngressAddressCondition().Probe(ctx)
		},
		Interval:    d.cfg.Timeouts.IngressInterval,
		MaxAttempts: d.cfg.Timeouts.IngressMaxAttempts,
		OnTimeout:   wait.WarnAndContinue,
	}
}
