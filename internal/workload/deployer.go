// Package workload applies the application manifests to the cluster and
// tears them down again.
package workload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/kube"
	"github.com/ideas-api/stackctl/internal/pipeline"
	"github.com/ideas-api/stackctl/internal/resource"
	"github.com/ideas-api/stackctl/internal/util/wait"
)

// Cluster covers the Kubernetes operations the deployer needs.
type Cluster interface {
	Apply(ctx context.Context, manifest []byte) ([]kube.ObjectRef, error)
	Delete(ctx context.Context, manifest []byte) ([]kube.ObjectRef, error)
	DeploymentReady(ctx context.Context, namespace, name string) (bool, error)
	IngressAddress(ctx context.Context, namespace, name string) (string, error)
	IngressExists(ctx context.Context, namespace, name string) (resource.Existence, error)
	DeleteIngress(ctx context.Context, namespace, name string) error
	NamespaceExists(ctx context.Context, name string) (resource.Existence, error)
}

// Deployer applies manifests in dependency order and awaits the rollout.
type Deployer struct {
	cluster  Cluster
	cfg      *config.Config
	observer pipeline.Observer

	// readFile and sleep are swapped in tests.
	readFile func(path string) ([]byte, error)
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a deployer.
func New(cluster Cluster, cfg *config.Config, observer pipeline.Observer) *Deployer {
	return &Deployer{
		cluster:  cluster,
		cfg:      cfg,
		observer: observer,
		readFile: os.ReadFile,
		sleep:    sleepCtx,
	}
}

// Apply applies every manifest in the configured order. After a manifest that
// creates the namespace, it pauses so the API server can finish setting up
// service accounts and defaults before dependent objects arrive.
func (d *Deployer) Apply(ctx context.Context) error {
	for _, name := range d.cfg.Workload.Manifests {
		path := filepath.Join(d.cfg.Workload.ManifestDir, name)
		manifest, err := d.readFile(path)
		if err != nil {
			return fmt.Errorf("failed to read manifest %s: %w", path, err)
		}

		applied, err := d.cluster.Apply(ctx, manifest)
		if err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
		for _, ref := range applied {
			d.logf("applied %s", ref)
		}

		if containsNamespace(applied) && d.cfg.Timeouts.SettleDelay > 0 {
			d.logf("waiting %v for namespace %s to settle", d.cfg.Timeouts.SettleDelay, d.cfg.Namespace)
			if err := d.sleep(ctx, d.cfg.Timeouts.SettleDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// RolloutCondition waits for the workload deployment to become fully
// available. Exhaustion is fatal: a workload that never comes up means the
// deploy failed.
func (d *Deployer) RolloutCondition() *wait.Condition {
	attempts := int(d.cfg.Timeouts.RolloutTimeout / d.cfg.Timeouts.RolloutInterval)
	if attempts < 1 {
		attempts = 1
	}
	return &wait.Condition{
		Name: "workload-rollout",
		Probe: func(ctx context.Context) (bool, error) {
			return d.cluster.DeploymentReady(ctx, d.cfg.Namespace, d.cfg.Workload.DeploymentName)
		},
		Interval:    d.cfg.Timeouts.RolloutInterval,
		MaxAttempts: attempts,
		OnTimeout:   wait.Fatal,
	}
}

// IngressAddressCondition waits for the ingress controller to publish an
// external address. The controller provisions a load balancer in the
// background, which can outlast any reasonable deploy wait, so exhaustion is
// only a warning.
func (d *Deployer) IngressAddressCondition() *wait.Condition {
	return &wait.Condition{
		Name: "ingress-address",
		Probe: func(ctx context.Context) (bool, error) {
			addr, err := d.cluster.IngressAddress(ctx, d.cfg.Namespace, d.cfg.Workload.IngressName)
			if err != nil {
				return false, err
			}
			if addr != "" {
				d.logf("ingress reachable at http://%s", addr)
				return true, nil
			}
			return false, nil
		},
		Interval:    d.cfg.Timeouts.IngressInterval,
		MaxAttempts: d.cfg.Timeouts.IngressMaxAttempts,
		OnTimeout:   wait.WarnAndContinue,
	}
}

// IngressGone reports whether the workload ingress has been removed.
func (d *Deployer) IngressGone(ctx context.Context) (bool, error) {
	state, err := d.cluster.IngressExists(ctx, d.cfg.Namespace, d.cfg.Workload.IngressName)
	if err != nil {
		return false, err
	}
	return state == resource.Absent, nil
}

// DeleteIngress removes the ingress first so its load balancer starts
// draining before the rest of the teardown.
func (d *Deployer) DeleteIngress(ctx context.Context) error {
	return d.cluster.DeleteIngress(ctx, d.cfg.Namespace, d.cfg.Workload.IngressName)
}

// DeleteAll removes the remaining workload objects in reverse manifest
// order. Objects that are already gone are not failures.
func (d *Deployer) DeleteAll(ctx context.Context) error {
	manifests := d.cfg.Workload.Manifests
	for i := len(manifests) - 1; i >= 0; i-- {
		path := filepath.Join(d.cfg.Workload.ManifestDir, manifests[i])
		manifest, err := d.readFile(path)
		if err != nil {
			return fmt.Errorf("failed to read manifest %s: %w", path, err)
		}

		deleted, err := d.cluster.Delete(ctx, manifest)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", manifests[i], err)
		}
		for _, ref := range deleted {
			d.logf("deleted %s", ref)
		}
	}
	return nil
}

// Deployed probes whether the workload namespace exists.
func (d *Deployer) Deployed(ctx context.Context) (resource.Existence, error) {
	return d.cluster.NamespaceExists(ctx, d.cfg.Namespace)
}

func (d *Deployer) logf(format string, v ...interface{}) {
	if d.observer != nil {
		d.observer.Printf(format, v...)
	}
}

func containsNamespace(refs []kube.ObjectRef) bool {
	for _, ref := range refs {
		if ref.Kind == "Namespace" {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
