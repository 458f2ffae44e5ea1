package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestForEnvironment_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := ForEnvironment("")
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Environment)
	require.Equal(t, "ideas-api", cfg.Project)
	require.Equal(t, "ideas-api-dev", cfg.ClusterName())
	require.Equal(t, "us-east-1", cfg.Region)
	require.Equal(t, "ideas-api", cfg.Namespace)
	require.Equal(t, "/aws/eks/ideas-api-dev/cluster", cfg.LogGroup)
	require.Equal(t, "ideas-api-dev-tfstate", cfg.Backend.Bucket)
	require.Equal(t, "ideas-api-terraform-lock", cfg.Backend.LockTable)
	require.Equal(t, "env/dev/terraform.tfstate", cfg.Backend.StateKey)
	require.Equal(t, filepath.Join("envs", "dev.tfvars"), cfg.Terraform.VarFile)
	require.Equal(t, "ideas-api-dev", cfg.Registry.Repository)
	require.Equal(t, "latest", cfg.Registry.Tag)
	require.NotNil(t, cfg.Timeouts)
}

func TestForEnvironment_NamedEnvironment(t *testing.T) {
	t.Parallel()

	cfg, err := ForEnvironment("staging")
	require.NoError(t, err)
	require.Equal(t, "ideas-api-staging", cfg.ClusterName())
	require.Equal(t, filepath.Join("envs", "staging.tfvars"), cfg.Terraform.VarFile)
	require.Equal(t, "env/staging/terraform.tfstate", cfg.Backend.StateKey)
}

func TestForEnvironment_InvalidName(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"UPPER", "has space", "-leading", "x/../y"} {
		_, err := ForEnvironment(bad)
		require.Error(t, err, bad)
	}
}

func TestManifestOrder(t *testing.T) {
	t.Parallel()

	cfg, err := ForEnvironment("dev")
	require.NoError(t, err)

	require.Equal(t, []string{
		"namespace.yaml",
		"configmap.yaml",
		"deployment.yaml",
		"service.yaml",
		"ingress.yaml",
		"hpa.yaml",
	}, cfg.Workload.Manifests)
}

func TestLoadFile_OverlayAndDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "stackctl.yaml")
	content := []byte(`
project: ideas-api
region: eu-west-1
registry:
  tag: latest
workload:
  deployment_name: ideas-api
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadFile(path, "prod")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Environment)
	require.Equal(t, "eu-west-1", cfg.Region)
	require.Equal(t, "ideas-api-prod", cfg.Registry.Repository)
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), "dev")
	require.Error(t, err)
}

func TestLoadTimeouts_Defaults(t *testing.T) {
	timeouts := LoadTimeouts()
	require.Equal(t, 10*time.Second, timeouts.SettleDelay)
	require.Equal(t, 5*time.Minute, timeouts.RolloutTimeout)
	require.Equal(t, 30, timeouts.LBGoneMaxAttempts)
}

func TestLoadTimeouts_EnvOverride(t *testing.T) {
	t.Setenv("STACKCTL_SETTLE_DELAY", "1s")
	t.Setenv("STACKCTL_ATTEMPTS_LB_GONE", "7")
	t.Setenv("STACKCTL_TIMEOUT_ROLLOUT", "not-a-duration")

	timeouts := LoadTimeouts()
	require.Equal(t, time.Second, timeouts.SettleDelay)
	require.Equal(t, 7, timeouts.LBGoneMaxAttempts)
	require.Equal(t, 5*time.Minute, timeouts.RolloutTimeout)
}
