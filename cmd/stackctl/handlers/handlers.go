// Package handlers implements command execution for the CLI.
//
// Handlers wire the real platform clients together; the factory function
// variables let tests substitute fakes without touching cobra.
package handlers

import (
	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/pipeline"
)

// Factory function variables - can be replaced in tests.
var (
	// loadConfig resolves the environment configuration, from a file when
	// one is given, otherwise from built-in defaults.
	loadConfig = func(configPath, environment string) (*config.Config, error) {
		if configPath != "" {
			return config.LoadFile(configPath, environment)
		}
		return config.ForEnvironment(environment)
	}

	// newObserver creates the pipeline observer.
	newObserver = func() pipeline.Observer {
		return pipeline.NewConsoleObserver()
	}
)
