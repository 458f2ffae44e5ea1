package prerequisites

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheck_FindsCommonTool(t *testing.T) {
	t.Parallel()

	// "go" is guaranteed to exist in the test environment.
	results := Check([]Tool{{Name: "go", Required: true}})
	require.Len(t, results.Results, 1)
	require.True(t, results.Results[0].Found)
	require.NotEmpty(t, results.Results[0].Path)
	require.False(t, results.HasErrors())
	require.NoError(t, results.Error())
}

func TestCheck_MissingRequiredTool(t *testing.T) {
	t.Parallel()

	results := Check([]Tool{{
		Name:       "definitely-not-a-real-binary-xyz",
		Required:   true,
		InstallURL: "https://example.com",
	}})

	require.True(t, results.HasErrors())
	err := results.Error()
	require.Error(t, err)
	require.Contains(t, err.Error(), "definitely-not-a-real-binary-xyz")
}

func TestCheck_MissingOptionalToolIsNotAnError(t *testing.T) {
	t.Parallel()

	results := Check([]Tool{{Name: "definitely-not-a-real-binary-xyz", Required: false}})
	require.Len(t, results.Missing, 1)
	require.False(t, results.HasErrors())
	require.NoError(t, results.Error())
}

func TestToolSets(t *testing.T) {
	t.Parallel()

	names := func(tools []Tool) []string {
		var out []string
		for _, tool := range tools {
			out = append(out, tool.Name)
		}
		return out
	}

	require.Contains(t, names(DeployTools()), "terraform")
	require.Contains(t, names(DeployTools()), "docker")
	require.Contains(t, names(DestroyTools()), "terraform")
	require.NotContains(t, names(DestroyTools()), "docker")
}
