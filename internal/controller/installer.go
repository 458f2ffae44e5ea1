// Package controller installs the AWS load balancer controller that turns
// Ingress objects into application load balancers.
package controller

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/kube"
	"github.com/ideas-api/stackctl/internal/pipeline"
	"github.com/ideas-api/stackctl/internal/platform/aws"
	"github.com/ideas-api/stackctl/internal/resource"
)

const (
	releaseName      = "aws-load-balancer-controller"
	releaseNamespace = "kube-system"
	chartRepoURL     = "https://aws.github.io/eks-charts"
	chartName        = "aws-load-balancer-controller"

	// policyName matches the name the upstream controller documentation uses,
	// so clusters bootstrapped by other tooling share the same policy.
	policyName = "AWSLoadBalancerControllerIAMPolicy"
)

// policyDocument is the upstream controller IAM policy.
//
//go:embed policy.json
var policyDocument string

// Identity covers the IAM and EKS lookups the installer needs.
type Identity interface {
	AccountID(ctx context.Context) (string, error)
	DescribeCluster(ctx context.Context, clusterName string) (*aws.ClusterInfo, error)
	FindOpenIDConnectProvider(ctx context.Context, issuer string) (string, error)
	CreateOpenIDConnectProvider(ctx context.Context, issuer string) (string, error)
	EnsurePolicy(ctx context.Context, accountID, policyName, document string) (string, error)
}

// Releases covers the Helm operations the installer needs.
type Releases interface {
	ReleaseExists(kubeconfig []byte, namespace, releaseName string) (bool, error)
	InstallOrUpgrade(kubeconfig []byte, namespace, releaseName, repoURL, chartName, version string, values map[string]interface{}) error
	Uninstall(kubeconfig []byte, namespace, releaseName string) error
}

// Installer wires the controller into a cluster: OIDC federation, the
// controller IAM policy, and the Helm release, in that order.
type Installer struct {
	identity Identity
	releases Releases
	cfg      *config.Config
	observer pipeline.Observer

	// renderKubeconfig is swapped in tests.
	renderKubeconfig func(info *aws.ClusterInfo, region string) ([]byte, error)
}

// New creates a controller installer.
func New(identity Identity, releases Releases, cfg *config.Config, observer pipeline.Observer) *Installer {
	return &Installer{
		identity:         identity,
		releases:         releases,
		cfg:              cfg,
		observer:         observer,
		renderKubeconfig: kube.Kubeconfig,
	}
}

// Installed probes for the controller's Helm release. Probe failures report
// Unknown so the caller can decide to reconcile anyway.
func (i *Installer) Installed(ctx context.Context) (resource.Existence, error) {
	kubeconfig, _, err := i.clusterAccess(ctx)
	if err != nil {
		return resource.Unknown, err
	}

	exists, err := i.releases.ReleaseExists(kubeconfig, releaseNamespace, releaseName)
	if err != nil {
		return resource.Unknown, err
	}
	if exists {
		return resource.Present, nil
	}
	return resource.Absent, nil
}

// Install ensures OIDC federation and the controller policy exist, then
// installs (or upgrades) the controller release. Each step is idempotent.
func (i *Installer) Install(ctx context.Context) error {
	kubeconfig, info, err := i.clusterAccess(ctx)
	if err != nil {
		return err
	}

	if info.OIDCIssuer == "" {
		return fmt.Errorf("cluster %s has no OIDC issuer; cannot federate the controller service account", info.Name)
	}

	providerARN, err := i.identity.FindOpenIDConnectProvider(ctx, info.OIDCIssuer)
	if err != nil {
		return err
	}
	if providerARN == "" {
		providerARN, err = i.identity.CreateOpenIDConnectProvider(ctx, info.OIDCIssuer)
		if err != nil {
			return err
		}
		i.event(pipeline.EventResourceCreated, "oidc-provider", providerARN)
	} else {
		i.event(pipeline.EventResourceExists, "oidc-provider", providerARN)
	}

	accountID, err := i.identity.AccountID(ctx)
	if err != nil {
		return err
	}

	policyARN, err := i.identity.EnsurePolicy(ctx, accountID, policyName, policyDocument)
	if err != nil {
		return err
	}
	i.event(pipeline.EventResourceExists, "iam-policy", policyARN)

	// The role itself is provisioned with the rest of the infrastructure;
	// only its ARN is derived here for the service account annotation.
	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s-alb-controller", accountID, i.cfg.ClusterName())

	values := map[string]interface{}{
		"clusterName": info.Name,
		"region":      i.cfg.Region,
		"serviceAccount": map[string]interface{}{
			"create": true,
			"name":   releaseName,
			"annotations": map[string]interface{}{
				"eks.amazonaws.com/role-arn": roleARN,
			},
		},
	}

	if err := i.releases.InstallOrUpgrade(kubeconfig, releaseNamespace, releaseName, chartRepoURL, chartName, "", values); err != nil {
		return fmt.Errorf("failed to install %s: %w", releaseName, err)
	}
	i.event(pipeline.EventResourceCreated, "helm-release", releaseNamespace+"/"+releaseName)

	return nil
}

// Uninstall removes the controller release. When the cluster itself is
// unreachable there is nothing left to uninstall.
func (i *Installer) Uninstall(ctx context.Context) error {
	kubeconfig, _, err := i.clusterAccess(ctx)
	if err != nil {
		i.logf("skipping controller uninstall, cluster is unreachable: %v", err)
		return nil
	}

	if err := i.releases.Uninstall(kubeconfig, releaseNamespace, releaseName); err != nil {
		return fmt.Errorf("failed to uninstall %s: %w", releaseName, err)
	}
	i.event(pipeline.EventResourceDeleted, "helm-release", releaseNamespace+"/"+releaseName)
	return nil
}

func (i *Installer) clusterAccess(ctx context.Context) ([]byte, *aws.ClusterInfo, error) {
	info, err := i.identity.DescribeCluster(ctx, i.cfg.ClusterName())
	if err != nil {
		return nil, nil, err
	}

	kubeconfig, err := i.renderKubeconfig(info, i.cfg.Region)
	if err != nil {
		return nil, nil, err
	}
	return kubeconfig, info, nil
}

func (i *Installer) event(eventType pipeline.EventType, resourceName, message string) {
	if i.observer != nil {
		i.observer.Event(pipeline.Event{Type: eventType, Resource: resourceName, Message: message})
	}
}

func (i *Installer) logf(format string, v ...interface{}) {
	if i.observer != nil {
		i.observer.Printf(format, v...)
	}
}
