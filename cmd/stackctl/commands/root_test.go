package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "stackctl", cmd.Use)
	assert.Equal(t, "Deploy and tear down the ideas-api cloud environment", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{
		"deploy",
		"destroy",
		"outputs",
		"analyze",
		"version",
		"completion",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
}

func TestRoot_SubcommandCount(t *testing.T) {
	cmd := Root()
	assert.Len(t, cmd.Commands(), 6, "Expected 6 subcommands")
}

func requireEnvFlag(t *testing.T, cmd *cobra.Command) {
	t.Helper()

	flag := cmd.Flags().Lookup("env")
	require.NotNil(t, flag, "env flag should exist")
	assert.Equal(t, "e", flag.Shorthand)
	assert.Equal(t, "dev", flag.DefValue, "env should default to dev")
}

func TestDeployCommand(t *testing.T) {
	cmd := Deploy()

	require.NotNil(t, cmd)
	assert.Equal(t, "deploy", cmd.Use)
	assert.Contains(t, cmd.Long, "idempotent")
	requireEnvFlag(t, cmd)

	approve := cmd.Flags().Lookup("auto-approve")
	require.NotNil(t, approve)
	assert.Equal(t, "false", approve.DefValue)
}

func TestDestroyCommand(t *testing.T) {
	cmd := Destroy()

	require.NotNil(t, cmd)
	assert.Equal(t, "destroy", cmd.Use)
	assert.Contains(t, cmd.Long, "reverse deploy order")
	assert.Contains(t, cmd.Long, "irreversible")
	requireEnvFlag(t, cmd)
}

func TestOutputsCommand(t *testing.T) {
	cmd := Outputs()

	require.NotNil(t, cmd)
	assert.Equal(t, "outputs", cmd.Use)
	requireEnvFlag(t, cmd)

	jsonFlag := cmd.Flags().Lookup("json")
	require.NotNil(t, jsonFlag)
	assert.Equal(t, "false", jsonFlag.DefValue)
}

func TestAnalyzeCommand(t *testing.T) {
	cmd := Analyze()

	require.NotNil(t, cmd)
	assert.Equal(t, "analyze", cmd.Use)
	requireEnvFlag(t, cmd)

	window := cmd.Flags().Lookup("window")
	require.NotNil(t, window)
	assert.Equal(t, "15m0s", window.DefValue)
}

func TestCompletionCommand(t *testing.T) {
	cmd := Completion()

	require.NotNil(t, cmd)
	assert.Contains(t, cmd.ValidArgs, "bash")
	assert.Contains(t, cmd.ValidArgs, "zsh")
}
