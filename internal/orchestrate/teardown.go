package orchestrate

import (
	"context"
	"fmt"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/pipeline"
	"github.com/ideas-api/stackctl/internal/resource"
	"github.com/ideas-api/stackctl/internal/util/wait"
)

const destroyStage = "infrastructure-destroy"

// Teardown runs the reverse sequence best-effort: every cleanup stage runs
// even when earlier ones fail, because each removes an independent resource
// the final destroy would otherwise trip over. Only a failed destroy makes
// the teardown itself fail.
type Teardown struct {
	cfg         *config.Config
	observer    pipeline.Observer
	tf          Provisioner
	installer   ControllerInstaller
	publisher   ImagePublisher
	deployerFor DeployerFactory
	lb          LoadBalancers
}

// NewTeardown assembles a teardown orchestration.
func NewTeardown(
	cfg *config.Config,
	observer pipeline.Observer,
	tf Provisioner,
	installer ControllerInstaller,
	publisher ImagePublisher,
	deployerFor DeployerFactory,
	lb LoadBalancers,
) *Teardown {
	return &Teardown{
		cfg:         cfg,
		observer:    observer,
		tf:          tf,
		installer:   installer,
		publisher:   publisher,
		deployerFor: memoize(deployerFor),
		lb:          lb,
	}
}

// Run executes the teardown pipeline. The returned error is non-nil only
// when the final destroy failed; earlier best-effort failures are recorded
// in the result but do not fail the run.
func (t *Teardown) Run(ctx context.Context) (*pipeline.Result, error) {
	p := pipeline.New("teardown "+t.cfg.Environment, t.stages())
	if t.observer != nil {
		p.Observer = t.observer
	}

	result := p.Run(ctx)

	if outcome, ok := result.OutcomeOf(destroyStage); ok && outcome.Status == pipeline.Failed {
		return result, fmt.Errorf("teardown incomplete: %w", outcome.Err)
	}
	return result, nil
}

func (t *Teardown) stages() []pipeline.Stage {
	return []pipeline.Stage{
		{
			// The ingress goes first: deleting it makes the controller
			// release the load balancer, which blocks the network teardown
			// for as long as it exists.
			Name:   "workload-ingress",
			Policy: pipeline.BestEffort,
			Check: func(ctx context.Context) (bool, error) {
				deployer, err := t.deployerFor(ctx)
				if err != nil {
					return false, err
				}
				return deployer.IngressGone(ctx)
			},
			Run:  t.deleteIngress,
			Post: t.loadBalancerGoneCondition(),
		},
		{
			// Workload objects go before the controller uninstall: the
			// manifests include the ingress, and deleting an ingress
			// without a controller leaves its finalizer unprocessed and
			// the load balancer orphaned.
			Name:   "workload-objects",
			Policy: pipeline.BestEffort,
			Check:  t.workloadGone,
			Run:    t.deleteWorkload,
		},
		{
			Name:   "ingress-controller",
			Policy: pipeline.BestEffort,
			Run:    t.installer.Uninstall,
		},
		{
			Name:   "registry-purge",
			Policy: pipeline.BestEffort,
			Check:  t.repositoryGone,
			Run:    t.publisher.PurgeAll,
		},
		{
			Name:   destroyStage,
			Policy: pipeline.FailFast,
			Run:    t.destroy,
		},
	}
}

func (t *Teardown) deleteIngress(ctx context.Context) error {
	deployer, err := t.deployerFor(ctx)
	if err != nil {
		return err
	}
	return deployer.DeleteIngress(ctx)
}

// workloadGone reports whether the workload namespace has already been
// removed, so a re-run does not try to delete into a dead cluster.
func (t *Teardown) workloadGone(ctx context.Context) (bool, error) {
	deployer, err := t.deployerFor(ctx)
	if err != nil {
		return false, err
	}
	state, err := deployer.Deployed(ctx)
	if err != nil {
		return false, err
	}
	return state == resource.Absent, nil
}

// repositoryGone reports whether the image repository is already absent.
func (t *Teardown) repositoryGone(ctx context.Context) (bool, error) {
	state, err := t.publisher.RepositoryExists(ctx)
	if err != nil {
		return false, err
	}
	return state == resource.Absent, nil
}

func (t *Teardown) deleteWorkload(ctx context.Context) error {
	deployer, err := t.deployerFor(ctx)
	if err != nil {
		return err
	}
	return deployer.DeleteAll(ctx)
}

func (t *Teardown) destroy(ctx context.Context) error {
	if err := t.tf.Init(ctx); err != nil {
		return err
	}
	return t.tf.Destroy(ctx)
}

// loadBalancerGoneCondition waits for the controller's load balancers to
// disappear from the account. Deletion happens asynchronously after the
// ingress object is gone; if it takes longer than the wait, the destroy may
// still fail and the hint on its error points back here.
func (t *Teardown) loadBalancerGoneCondition() *wait.Condition {
	return &wait.Condition{
		Name: "load-balancer-gone",
		Probe: func(ctx context.Context) (bool, error) {
			return t.lb.ClusterLoadBalancerGone(ctx, t.cfg.ClusterName())
		},
		Interval:    t.cfg.Timeouts.LBGoneInterval,
		MaxAttempts: t.cfg.Timeouts.LBGoneMaxAttempts,
		OnTimeout:   wait.WarnAndContinue,
	}
}
