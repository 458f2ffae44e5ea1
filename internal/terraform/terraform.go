// Package terraform wraps the provisioning tool's init/plan/apply/destroy
// verbs and captures its typed outputs.
package terraform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/ideas-api/stackctl/internal/config"
	"github.com/ideas-api/stackctl/internal/pipeline"
)

// runTerraform executes the terraform binary. Replaced in tests.
var runTerraform = func(ctx context.Context, dir string, stream bool, args ...string) (string, error) {
	full := append([]string{"-chdir=" + dir}, args...)
	// #nosec G204 - args are built from internal config, not user input
	cmd := exec.CommandContext(ctx, "terraform", full...)

	var buf bytes.Buffer
	if stream {
		cmd.Stdout = io.MultiWriter(os.Stdout, &buf)
		cmd.Stderr = io.MultiWriter(os.Stderr, &buf)
	} else {
		cmd.Stdout = &buf
		cmd.Stderr = &buf
	}

	err := cmd.Run()
	return buf.String(), err
}

// confirmApply asks the operator to approve the pending apply. Replaced in tests.
var confirmApply = func(ctx context.Context, environment string) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false, fmt.Errorf("stdin is not a terminal; re-run with --auto-approve to apply non-interactively")
	}

	var approved bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Apply infrastructure changes to %q?", environment)).
			Description("Terraform will create or modify network, cluster, and registry resources.").
			Value(&approved),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	return approved, nil
}

// Outputs are the provisioning outputs downstream stages consume.
type Outputs struct {
	RegistryURL     string
	ClusterName     string
	ClusterEndpoint string
}

// Runner drives terraform for one environment.
type Runner struct {
	cfg      *config.Config
	observer pipeline.Observer
}

// NewRunner creates a terraform runner.
func NewRunner(cfg *config.Config, observer pipeline.Observer) *Runner {
	return &Runner{cfg: cfg, observer: observer}
}

func (r *Runner) logf(format string, v ...interface{}) {
	if r.observer != nil {
		r.observer.Printf(format, v...)
	}
}

// Init configures the backend against the bootstrapped bucket and lock table.
func (r *Runner) Init(ctx context.Context) error {
	r.logf("terraform init (bucket=%s key=%s)", r.cfg.Backend.Bucket, r.cfg.Backend.StateKey)
	output, err := runTerraform(ctx, r.cfg.Terraform.Dir, true,
		"init",
		"-input=false",
		fmt.Sprintf("-backend-config=bucket=%s", r.cfg.Backend.Bucket),
		fmt.Sprintf("-backend-config=key=%s", r.cfg.Backend.StateKey),
		fmt.Sprintf("-backend-config=region=%s", r.cfg.Region),
		fmt.Sprintf("-backend-config=dynamodb_table=%s", r.cfg.Backend.LockTable),
	)
	if err != nil {
		return wrapRunError("init", output, err)
	}
	return nil
}

// Plan produces a speculative plan for the environment's variable file.
func (r *Runner) Plan(ctx context.Context) error {
	output, err := runTerraform(ctx, r.cfg.Terraform.Dir, true,
		"plan",
		"-input=false",
		"-var-file="+r.cfg.Terraform.VarFile,
	)
	if err != nil {
		return wrapRunError("plan", output, err)
	}
	return nil
}

// Apply mutates infrastructure. Without autoApprove it plans first and blocks
// on an explicit confirmation; refusal aborts the run.
func (r *Runner) Apply(ctx context.Context, autoApprove bool) error {
	if !autoApprove {
		if err := r.Plan(ctx); err != nil {
			return err
		}

		approved, err := confirmApply(ctx, r.cfg.Environment)
		if err != nil {
			return fmt.Errorf("apply confirmation failed: %w", err)
		}
		if !approved {
			return fmt.Errorf("apply aborted by operator")
		}
	}

	r.logf("terraform apply (var-file=%s)", r.cfg.Terraform.VarFile)
	output, err := runTerraform(ctx, r.cfg.Terraform.Dir, true,
		"apply",
		"-input=false",
		"-auto-approve",
		"-var-file="+r.cfg.Terraform.VarFile,
	)
	if err != nil {
		return wrapRunError("apply", output, err)
	}
	return nil
}

// Destroy tears down the provisioned infrastructure. Failures carry a hint
// naming the most likely blocking dependency class; the caller must not
// auto-retry.
func (r *Runner) Destroy(ctx context.Context) error {
	r.logf("terraform destroy (var-file=%s)", r.cfg.Terraform.VarFile)
	output, err := runTerraform(ctx, r.cfg.Terraform.Dir, true,
		"destroy",
		"-input=false",
		"-auto-approve",
		"-var-file="+r.cfg.Terraform.VarFile,
	)
	if err != nil {
		if lockErr := detectLock(output, err); lockErr != nil {
			return lockErr
		}
		return &DestroyError{Hint: classifyDestroyFailure(output), Err: err}
	}
	return nil
}

// Outputs reads the three named outputs required by downstream stages.
// It is read-only and can be re-invoked at any time after apply.
func (r *Runner) Outputs(ctx context.Context) (*Outputs, error) {
	raw, err := runTerraform(ctx, r.cfg.Terraform.Dir, false, "output", "-json")
	if err != nil {
		return nil, wrapRunError("output", raw, err)
	}
	return parseOutputs(raw)
}

// wrapRunError folds a lock rejection into LockError, otherwise annotates the
// failing verb.
func wrapRunError(verb, output string, err error) error {
	if lockErr := detectLock(output, err); lockErr != nil {
		return lockErr
	}
	return fmt.Errorf("terraform %s failed: %w", verb, err)
}
