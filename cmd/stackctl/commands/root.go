// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the stackctl CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackctl",
		Short: "Deploy and tear down the ideas-api cloud environment",
	}

	cmd.AddCommand(Deploy())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Outputs())
	cmd.AddCommand(Analyze())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
