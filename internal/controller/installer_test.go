package controller

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/platform/aws"
	"github.com/ideas-api/stackctl/internal/resource"
)

type fakeIdentity struct {
	accountID   string
	cluster     *aws.ClusterInfo
	clusterErr  error
	providerARN string

	createdProvider bool
	ensuredPolicy   string
}

func (f *fakeIdentity) AccountID(context.Context) (string, error) {
	return f.accountID, nil
}

func (f *fakeIdentity) DescribeCluster(context.Context, string) (*aws.ClusterInfo, error) {
	return f.cluster, f.clusterErr
}

func (f *fakeIdentity) FindOpenIDConnectProvider(context.Context, string) (string, error) {
	return f.providerARN, nil
}

func (f *fakeIdentity) CreateOpenIDConnectProvider(_ context.Context, issuer string) (string, error) {
	f.createdProvider = true
	return "arn:aws:iam::123456789012:oidc-provider/" + issuer, nil
}

func (f *fakeIdentity) EnsurePolicy(_ context.Context, accountID, name, document string) (string, error) {
	f.ensuredPolicy = name
	return "arn:aws:iam::" + accountID + ":policy/" + name, nil
}

type fakeReleases struct {
	exists    bool
	existsErr error

	installed   bool
	values      map[string]interface{}
	uninstalled bool
}

func (f *fakeReleases) ReleaseExists([]byte, string, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeReleases) InstallOrUpgrade(_ []byte, _, _, _, _, _ string, values map[string]interface{}) error {
	f.installed = true
	f.values = values
	return nil
}

func (f *fakeReleases) Uninstall([]byte, string, string) error {
	f.uninstalled = true
	return nil
}

func activeCluster() *aws.ClusterInfo {
	return &aws.ClusterInfo{
		Name:       "ideas-api-staging",
		Endpoint:   "https://example.eks.amazonaws.com",
		CAData:     []byte("ca"),
		OIDCIssuer: "https://oidc.eks.eu-west-1.amazonaws.com/id/ABC123",
	}
}

func newTestInstaller(t *testing.T, identity *fakeIdentity, releases *fakeReleases) *Installer {
	t.Helper()
	cfg, err := config.ForEnvironment("staging")
	require.NoError(t, err)

	inst := New(identity, releases, cfg, nil)
	inst.renderKubeconfig = func(*aws.ClusterInfo, string) ([]byte, error) {
		return []byte("kubeconfig"), nil
	}
	return inst
}

func TestPolicyDocumentIsValidJSON(t *testing.T) {
	t.Parallel()

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(policyDocument), &doc))
	require.Equal(t, "2012-10-17", doc["Version"])
}

func TestInstalledReflectsReleaseState(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{cluster: activeCluster()}

	inst := newTestInstaller(t, identity, &fakeReleases{exists: true})
	state, err := inst.Installed(context.Background())
	require.NoError(t, err)
	require.Equal(t, resource.Present, state)

	inst = newTestInstaller(t, identity, &fakeReleases{exists: false})
	state, err = inst.Installed(context.Background())
	require.NoError(t, err)
	require.Equal(t, resource.Absent, state)
}

func TestInstalledReportsUnknownOnProbeFailure(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{cluster: activeCluster()}
	inst := newTestInstaller(t, identity, &fakeReleases{existsErr: errors.New("connection refused")})

	state, err := inst.Installed(context.Background())
	require.Error(t, err)
	require.Equal(t, resource.Unknown, state)
}

func TestInstallCreatesProviderWhenMissing(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{accountID: "123456789012", cluster: activeCluster()}
	releases := &fakeReleases{}
	inst := newTestInstaller(t, identity, releases)

	require.NoError(t, inst.Install(context.Background()))
	require.True(t, identity.createdProvider)
	require.Equal(t, policyName, identity.ensuredPolicy)
	require.True(t, releases.installed)

	require.Equal(t, "ideas-api-staging", releases.values["clusterName"])
	sa, ok := releases.values["serviceAccount"].(map[string]interface{})
	require.True(t, ok)
	annotations, ok := sa["annotations"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t,
		"arn:aws:iam::123456789012:role/ideas-api-staging-alb-controller",
		annotations["eks.amazonaws.com/role-arn"])
}

func TestInstallReusesExistingProvider(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{
		accountID:   "123456789012",
		cluster:     activeCluster(),
		providerARN: "arn:aws:iam::123456789012:oidc-provider/oidc.eks.eu-west-1.amazonaws.com/id/ABC123",
	}
	releases := &fakeReleases{}
	inst := newTestInstaller(t, identity, releases)

	require.NoError(t, inst.Install(context.Background()))
	require.False(t, identity.createdProvider, "an existing provider must not be re-created")
	require.True(t, releases.installed)
}

func TestInstallRejectsClusterWithoutIssuer(t *testing.T) {
	t.Parallel()

	cluster := activeCluster()
	cluster.OIDCIssuer = ""
	identity := &fakeIdentity{accountID: "123456789012", cluster: cluster}
	releases := &fakeReleases{}
	inst := newTestInstaller(t, identity, releases)

	err := inst.Install(context.Background())
	require.ErrorContains(t, err, "OIDC issuer")
	require.False(t, releases.installed)
}

func TestUninstallSkipsUnreachableCluster(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{clusterErr: errors.New("cluster ideas-api-staging is not active")}
	releases := &fakeReleases{}
	inst := newTestInstaller(t, identity, releases)

	require.NoError(t, inst.Uninstall(context.Background()))
	require.False(t, releases.uninstalled)
}

func TestUninstallRemovesRelease(t *testing.T) {
	t.Parallel()

	identity := &fakeIdentity{cluster: activeCluster()}
	releases := &fakeReleases{}
	inst := newTestInstaller(t, identity, releases)

	require.NoError(t, inst.Uninstall(context.Background()))
	require.True(t, releases.uninstalled)
}
