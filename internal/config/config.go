// Package config defines the explicit configuration threaded through every
// pipeline stage. No stage reads ambient process state directly; environment
// variables are consulted only here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultProject is the name prefix for every managed resource.
const DefaultProject = "ideas-api"

// DefaultEnvironment is used when no environment argument is given.
const DefaultEnvironment = "dev"

var environmentPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,31}$`)

// Config is the single configuration structure consumed by all stage
// constructors.
type Config struct {
	// Project is the resource name prefix (registry repo, cluster, bucket).
	Project string `yaml:"project"`

	// Environment selects the tfvars file and naming suffix.
	Environment string `yaml:"environment"`

	// Region is the target provisioning region.
	Region string `yaml:"region"`

	// Namespace is the target workload namespace.
	Namespace string `yaml:"namespace"`

	// LogGroup is the CloudWatch log group scanned by the analyze command.
	LogGroup string `yaml:"log_group"`

	Backend   BackendConfig   `yaml:"backend"`
	Terraform TerraformConfig `yaml:"terraform"`
	Registry  RegistryConfig  `yaml:"registry"`
	Workload  WorkloadConfig  `yaml:"workload"`

	// Timeouts is loaded from the environment once, at startup.
	Timeouts *Timeouts `yaml:"-"`
}

// BackendConfig names the remote state store and its lock table.
type BackendConfig struct {
	Bucket    string `yaml:"bucket"`
	LockTable string `yaml:"lock_table"`
	StateKey  string `yaml:"state_key"`
}

// TerraformConfig locates the provisioning tool's working directory and the
// per-environment variable file.
type TerraformConfig struct {
	Dir     string `yaml:"dir"`
	VarFile string `yaml:"var_file"`
}

// RegistryConfig describes the container registry and image build.
type RegistryConfig struct {
	Repository string `yaml:"repository"`

	// Tag is the single mutable image tag. The rollout keys off this fixed
	// tag, so it stays mutable rather than content-addressed.
	Tag string `yaml:"tag"`

	BuildContext string `yaml:"build_context"`
}

// WorkloadConfig describes the manifests applied to the cluster.
type WorkloadConfig struct {
	ManifestDir string `yaml:"manifest_dir"`

	// Manifests lists manifest file names in dependency order.
	Manifests []string `yaml:"manifests"`

	DeploymentName string `yaml:"deployment_name"`
	IngressName    string `yaml:"ingress_name"`
}

// ClusterName returns the provisioned cluster's name for this environment.
func (c *Config) ClusterName() string {
	return fmt.Sprintf("%s-%s", c.Project, c.Environment)
}

// ForEnvironment builds a Config with defaults for the named environment.
func ForEnvironment(environment string) (*Config, error) {
	if environment == "" {
		environment = DefaultEnvironment
	}
	if !environmentPattern.MatchString(environment) {
		return nil, fmt.Errorf("invalid environment name %q", environment)
	}

	cfg := &Config{
		Project:     DefaultProject,
		Environment: environment,
	}
	cfg.applyDefaults()
	cfg.Timeouts = LoadTimeouts()
	return cfg, nil
}

// LoadFile reads a YAML config file and fills unset fields with
// environment-derived defaults. The environment argument wins over the file's
// environment field when non-empty.
func LoadFile(path, environment string) (*Config, error) {
	// #nosec G304 - path is an operator-supplied CLI flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if environment != "" {
		cfg.Environment = environment
	}
	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}
	if !environmentPattern.MatchString(cfg.Environment) {
		return nil, fmt.Errorf("invalid environment name %q", cfg.Environment)
	}
	if cfg.Project == "" {
		cfg.Project = DefaultProject
	}

	cfg.applyDefaults()
	cfg.Timeouts = LoadTimeouts()
	return &cfg, nil
}

// applyDefaults fills every unset field from the project and environment.
func (c *Config) applyDefaults() {
	name := c.ClusterName()

	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Namespace == "" {
		c.Namespace = c.Project
	}
	if c.LogGroup == "" {
		c.LogGroup = fmt.Sprintf("/aws/eks/%s/cluster", name)
	}

	if c.Backend.Bucket == "" {
		c.Backend.Bucket = fmt.Sprintf("%s-tfstate", name)
	}
	if c.Backend.LockTable == "" {
		c.Backend.LockTable = fmt.Sprintf("%s-terraform-lock", c.Project)
	}
	if c.Backend.StateKey == "" {
		c.Backend.StateKey = fmt.Sprintf("env/%s/terraform.tfstate", c.Environment)
	}

	if c.Terraform.Dir == "" {
		c.Terraform.Dir = "terraform"
	}
	if c.Terraform.VarFile == "" {
		c.Terraform.VarFile = filepath.Join("envs", c.Environment+".tfvars")
	}

	if c.Registry.Repository == "" {
		c.Registry.Repository = name
	}
	if c.Registry.Tag == "" {
		c.Registry.Tag = "latest"
	}
	if c.Registry.BuildContext == "" {
		c.Registry.BuildContext = "."
	}

	if c.Workload.ManifestDir == "" {
		c.Workload.ManifestDir = "k8s"
	}
	if len(c.Workload.Manifests) == 0 {
		// Fixed dependency order: namespace, configuration, workload,
		// service, ingress, autoscaler.
		c.Workload.Manifests = []string{
			"namespace.yaml",
			"configmap.yaml",
			"deployment.yaml",
			"service.yaml",
			"ingress.yaml",
			"hpa.yaml",
		}
	}
	if c.Workload.DeploymentName == "" {
		c.Workload.DeploymentName = c.Project
	}
	if c.Workload.IngressName == "" {
		c.Workload.IngressName = c.Project
	}
}
