package terraform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ideas-api/stackctl/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.ForEnvironment("staging")
	require.NoError(t, err)
	return cfg
}

func stubRunner(t *testing.T, fn func(ctx context.Context, dir string, stream bool, args ...string) (string, error)) {
	t.Helper()
	orig := runTerraform
	runTerraform = fn
	t.Cleanup(func() { runTerraform = orig })
}

func stubConfirm(t *testing.T, approved bool, err error) {
	t.Helper()
	orig := confirmApply
	confirmApply = func(context.Context, string) (bool, error) { return approved, err }
	t.Cleanup(func() { confirmApply = orig })
}

func TestInitPassesBackendConfig(t *testing.T) {
	var got []string
	stubRunner(t, func(_ context.Context, dir string, _ bool, args ...string) (string, error) {
		got = append([]string{dir}, args...)
		return "", nil
	})

	cfg := testConfig(t)
	require.NoError(t, NewRunner(cfg, nil).Init(context.Background()))

	joined := strings.Join(got, " ")
	require.Contains(t, joined, "init")
	require.Contains(t, joined, "-backend-config=bucket="+cfg.Backend.Bucket)
	require.Contains(t, joined, "-backend-config=key="+cfg.Backend.StateKey)
	require.Contains(t, joined, "-backend-config=dynamodb_table="+cfg.Backend.LockTable)
}

func TestApplyWithAutoApproveSkipsConfirmation(t *testing.T) {
	var verbs []string
	stubRunner(t, func(_ context.Context, _ string, _ bool, args ...string) (string, error) {
		verbs = append(verbs, args[0])
		return "", nil
	})
	stubConfirm(t, false, errors.New("confirm must not be called"))

	require.NoError(t, NewRunner(testConfig(t), nil).Apply(context.Background(), true))
	require.Equal(t, []string{"apply"}, verbs)
}

func TestApplyAbortsWhenOperatorDeclines(t *testing.T) {
	var verbs []string
	stubRunner(t, func(_ context.Context, _ string, _ bool, args ...string) (string, error) {
		verbs = append(verbs, args[0])
		return "", nil
	})
	stubConfirm(t, false, nil)

	err := NewRunner(testConfig(t), nil).Apply(context.Background(), false)
	require.ErrorContains(t, err, "aborted by operator")
	require.Equal(t, []string{"plan"}, verbs, "apply must not run after a declined confirmation")
}

func TestApplyRunsAfterConfirmation(t *testing.T) {
	var verbs []string
	stubRunner(t, func(_ context.Context, _ string, _ bool, args ...string) (string, error) {
		verbs = append(verbs, args[0])
		return "", nil
	})
	stubConfirm(t, true, nil)

	require.NoError(t, NewRunner(testConfig(t), nil).Apply(context.Background(), false))
	require.Equal(t, []string{"plan", "apply"}, verbs)
}

func TestLockRejectionBecomesLockError(t *testing.T) {
	stubRunner(t, func(context.Context, string, bool, ...string) (string, error) {
		return "Error acquiring the state lock\nID: abc-123\nWho: ci@runner\n", fmt.Errorf("exit status 1")
	})

	err := NewRunner(testConfig(t), nil).Apply(context.Background(), true)
	var lockErr *LockError
	require.ErrorAs(t, err, &lockErr)
	require.Contains(t, lockErr.Detail, "abc-123")
	require.Contains(t, err.Error(), "force-unlock")
}

func TestDestroyClassifiesDependencyViolation(t *testing.T) {
	stubRunner(t, func(context.Context, string, bool, ...string) (string, error) {
		return "Error: DependencyViolation: the subnet has dependencies and cannot be deleted", fmt.Errorf("exit status 1")
	})

	err := NewRunner(testConfig(t), nil).Destroy(context.Background())
	var destroyErr *DestroyError
	require.ErrorAs(t, err, &destroyErr)
	require.Contains(t, destroyErr.Hint, "load balancer")
}

func TestDestroyClassifiesNonEmptyRepository(t *testing.T) {
	stubRunner(t, func(context.Context, string, bool, ...string) (string, error) {
		return "Error: RepositoryNotEmptyException: repository contains images", fmt.Errorf("exit status 1")
	})

	err := NewRunner(testConfig(t), nil).Destroy(context.Background())
	var destroyErr *DestroyError
	require.ErrorAs(t, err, &destroyErr)
	require.Contains(t, destroyErr.Hint, "purge the registry")
}

func TestOutputsParsesRequiredValues(t *testing.T) {
	stubRunner(t, func(_ context.Context, _ string, stream bool, args ...string) (string, error) {
		require.False(t, stream, "output reads must not stream to the console")
		require.Equal(t, []string{"output", "-json"}, args)
		return `{
			"ecr_repository_url": {"value": "123.dkr.ecr.eu-west-1.amazonaws.com/ideas-api", "sensitive": false},
			"cluster_name": {"value": "ideas-api-staging", "sensitive": false},
			"cluster_endpoint": {"value": "https://example.eks.amazonaws.com", "sensitive": false},
			"extra": {"value": 42, "sensitive": false}
		}`, nil
	})

	out, err := NewRunner(testConfig(t), nil).Outputs(context.Background())
	require.NoError(t, err)
	require.Equal(t, "123.dkr.ecr.eu-west-1.amazonaws.com/ideas-api", out.RegistryURL)
	require.Equal(t, "ideas-api-staging", out.ClusterName)
	require.Equal(t, "https://example.eks.amazonaws.com", out.ClusterEndpoint)
}

func TestOutputsMissingValueIsFatal(t *testing.T) {
	stubRunner(t, func(context.Context, string, bool, ...string) (string, error) {
		return `{"cluster_name": {"value": "ideas-api-staging"}}`, nil
	})

	_, err := NewRunner(testConfig(t), nil).Outputs(context.Background())
	require.ErrorContains(t, err, "ecr_repository_url")
}
