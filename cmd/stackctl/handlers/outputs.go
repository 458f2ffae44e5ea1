package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/terraform"
)

// outputsReader matches terraform.Runner's read-only surface.
type outputsReader interface {
	Outputs(ctx context.Context) (*terraform.Outputs, error)
}

// newOutputsReader can be replaced in tests.
var newOutputsReader = func(cfg *config.Config) outputsReader {
	return terraform.NewRunner(cfg, nil)
}

// Outputs handles the outputs command. It reads the recorded provisioning
// outputs without mutating anything.
func Outputs(ctx context.Context, configPath, environment string, asJSON bool) error {
	cfg, err := loadConfig(configPath, environment)
	if err != nil {
		return err
	}

	outputs, err := newOutputsReader(cfg).Outputs(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{
			"registry_url":     outputs.RegistryURL,
			"cluster_name":     outputs.ClusterName,
			"cluster_endpoint": outputs.ClusterEndpoint,
		})
	}

	fmt.Printf("registry_url:     %s\n", outputs.RegistryURL)
	fmt.Printf("cluster_name:     %s\n", outputs.ClusterName)
	fmt.Printf("cluster_endpoint: %s\n", outputs.ClusterEndpoint)
	return nil
}
