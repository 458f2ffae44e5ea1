package terraform

import (
	"fmt"
	"strings"
)

// LockError signals that another run holds the remote state lock. The run
// must surface who holds it and stop; state locks are never force-broken
// automatically.
type LockError struct {
	Detail string
	Err    error
}

func (e *LockError) Error() string {
	msg := "state is locked by another operation"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg + " (wait for it to finish, or inspect the lock with 'terraform force-unlock' only if you are certain it is stale)"
}

func (e *LockError) Unwrap() error { return e.Err }

// DestroyError wraps a failed destroy with a hint about the likely blocking
// dependency, since destroy failures are almost always externally-created
// resources the state does not know about.
type DestroyError struct {
	Hint string
	Err  error
}

func (e *DestroyError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("terraform destroy failed: %v", e.Err)
	}
	return fmt.Sprintf("terraform destroy failed (%s): %v", e.Hint, e.Err)
}

func (e *DestroyError) Unwrap() error { return e.Err }

// detectLock recognizes the state-lock rejection in terraform output.
func detectLock(output string, err error) error {
	if !strings.Contains(output, "Error acquiring the state lock") {
		return nil
	}
	detail := ""
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ID:") || strings.HasPrefix(line, "Who:") || strings.HasPrefix(line, "Created:") {
			if detail != "" {
				detail += ", "
			}
			detail += line
		}
	}
	return &LockError{Detail: detail, Err: err}
}

// classifyDestroyFailure maps common destroy-blocking errors to an
// actionable hint.
func classifyDestroyFailure(output string) string {
	switch {
	case strings.Contains(output, "DependencyViolation") &&
		(strings.Contains(output, "subnet") || strings.Contains(output, "vpc") || strings.Contains(output, "security group")):
		return "network resources still have dependents, likely a load balancer created by the ingress controller; delete ingress objects and wait for the load balancer to disappear before retrying"
	case strings.Contains(output, "RepositoryNotEmptyException"):
		return "container repository still holds images; purge the registry before retrying"
	case strings.Contains(output, "ResourceInUseException") && strings.Contains(output, "nodegroup"):
		return "cluster node groups are still draining; retry once they report deleted"
	default:
		return ""
	}
}
