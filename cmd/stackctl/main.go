// Package main is the entry point for the stackctl CLI.
//
// stackctl deploys and tears down the ideas-api environment: remote state
// backend, Terraform-managed infrastructure, the ingress controller, the
// workload image, and the Kubernetes manifests, as one ordered pipeline.
//
// Commands: deploy, destroy, outputs, analyze.
//
// For detailed usage information, run:
//
//	stackctl --help
package main

import (
	"fmt"
	"os"

	"github.com/ideas-api/stackctl/cmd/stackctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
