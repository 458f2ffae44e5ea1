// Package pipeline implements the ordered, idempotency-checked stage
// execution shared by deploy and destroy.
package pipeline

import (
	"context"
	"time"

	"github.com/ideas-api/stackctl/internal/util/wait"
)

// Policy decides how a stage failure affects the rest of the pipeline.
type Policy int

const (
	// FailFast aborts the pipeline: later fail-fast stages are skipped.
	FailFast Policy = iota

	// BestEffort stages run regardless of earlier failures, accumulating
	// results, to maximize cleanup coverage during teardown.
	BestEffort
)

// Status is the lifecycle state of a stage within one pipeline run.
type Status int

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
	Skipped
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "invalid"
	}
}

// Stage is one named, idempotency-checked unit of orchestration work.
// Stages are constructed when a pipeline is built and executed exactly once
// per run.
type Stage struct {
	// Name identifies the stage in logs, results, and error annotations.
	Name string

	// Policy is decided once, at pipeline-construction time.
	Policy Policy

	// Check is the idempotency predicate. It is always evaluated before
	// Run; when it reports true the action is never invoked. A predicate
	// error is logged and treated as not-satisfied, so the action must
	// tolerate "already exists" responses.
	Check func(ctx context.Context) (bool, error)

	// Run is the forward action.
	Run func(ctx context.Context) error

	// Post is an optional post-condition awaited after Run succeeds.
	Post *wait.Condition
}

// Outcome records the terminal state of one stage.
type Outcome struct {
	Stage    string
	Status   Status
	Err      error
	Duration time.Duration
}
