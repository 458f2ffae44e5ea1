package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ideas-api/stackctl/internal/util/wait"
)

// Result is produced once per pipeline run and consumed by the CLI layer to
// decide exit status and printed diagnostics.
type Result struct {
	// Outcomes holds one entry per stage, in execution order.
	Outcomes []Outcome

	// Outputs collects named values stages expose to later stages and to
	// the caller (registry URL, cluster name, cluster endpoint).
	Outputs map[string]string

	firstFailure error
}

// FirstFailure returns the first fatal stage failure, or nil.
func (r *Result) FirstFailure() error {
	return r.firstFailure
}

// OutcomeOf returns the recorded outcome for the named stage.
func (r *Result) OutcomeOf(name string) (Outcome, bool) {
	for _, outcome := range r.Outcomes {
		if outcome.Stage == name {
			return outcome, true
		}
	}
	return Outcome{}, false
}

// Pipeline is an ordered list of stages executed strictly sequentially.
type Pipeline struct {
	Name     string
	Stages   []Stage
	Observer Observer
}

// New builds a pipeline with the default console observer.
func New(name string, stages []Stage) *Pipeline {
	return &Pipeline{
		Name:     name,
		Stages:   stages,
		Observer: NewConsoleObserver(),
	}
}

// Run executes the stages in order. A stage's action never begins before all
// causally-prior stages have reached a terminal state. Once a fail-fast stage
// fails, remaining fail-fast stages are skipped; best-effort stages continue
// regardless, accumulating results.
func (p *Pipeline) Run(ctx context.Context) *Result {
	start := time.Now()
	result := &Result{Outputs: make(map[string]string)}

	p.Observer.Printf("Starting %s with %d stages...", p.Name, len(p.Stages))

	aborted := false
	for i, stage := range p.Stages {
		label := fmt.Sprintf("%s (%d/%d)", stage.Name, i+1, len(p.Stages))

		if aborted && stage.Policy == FailFast {
			p.Observer.Event(Event{Type: EventStageSkipped, Stage: stage.Name, Message: "skipped after earlier failure"})
			result.Outcomes = append(result.Outcomes, Outcome{Stage: stage.Name, Status: Skipped})
			continue
		}

		outcome := p.runStage(ctx, label, stage)
		result.Outcomes = append(result.Outcomes, outcome)

		if outcome.Status == Failed {
			err := &StageError{Stage: stage.Name, Err: outcome.Err}
			if result.firstFailure == nil {
				result.firstFailure = err
			}
			if stage.Policy == FailFast {
				aborted = true
			}
		}
	}

	p.Observer.Printf("%s finished in %v", p.Name, time.Since(start).Round(time.Millisecond))
	return result
}

// runStage evaluates the idempotency predicate, runs the action if needed,
// and awaits the post-condition.
func (p *Pipeline) runStage(ctx context.Context, label string, stage Stage) Outcome {
	stageStart := time.Now()
	p.Observer.Event(Event{Type: EventStageStarted, Stage: stage.Name, Message: "starting"})

	// A satisfied check skips the action only. The post-condition still
	// runs: the state the action would have created can exist while its
	// asynchronous consequences are still settling, as when a re-run finds
	// the ingress already deleted but its load balancer still draining.
	satisfied := false
	if stage.Check != nil {
		ok, err := stage.Check(ctx)
		if err != nil {
			// Unknown state: proceed with the action, which must
			// absorb already-exists responses.
			p.Observer.Printf("[%s] idempotency check inconclusive: %v", label, err)
		} else if ok {
			p.Observer.Event(Event{Type: EventStageSatisfied, Stage: stage.Name, Message: "already satisfied, skipping action"})
			satisfied = true
		}
	}

	if !satisfied && stage.Run != nil {
		if err := stage.Run(ctx); err != nil {
			p.Observer.Event(Event{Type: EventStageFailed, Stage: stage.Name, Message: err.Error()})
			return Outcome{Stage: stage.Name, Status: Failed, Err: err, Duration: time.Since(stageStart)}
		}
	}

	if stage.Post != nil {
		outcome, err := wait.Await(ctx, *stage.Post)
		if err != nil {
			p.Observer.Event(Event{Type: EventStageFailed, Stage: stage.Name, Message: err.Error()})
			return Outcome{Stage: stage.Name, Status: Failed, Err: err, Duration: time.Since(stageStart)}
		}
		if outcome == wait.TimedOut {
			if stage.Post.OnTimeout == wait.Fatal {
				err := fmt.Errorf("timed out waiting for %s", stage.Post.Name)
				p.Observer.Event(Event{Type: EventStageFailed, Stage: stage.Name, Message: err.Error()})
				return Outcome{Stage: stage.Name, Status: Failed, Err: err, Duration: time.Since(stageStart)}
			}
			p.Observer.Printf("WARNING: [%s] %s not satisfied after %d attempts; continuing anyway",
				label, stage.Post.Name, stage.Post.MaxAttempts)
		}
	}

	p.Observer.Event(Event{Type: EventStageCompleted, Stage: stage.Name,
		Message: fmt.Sprintf("completed in %v", time.Since(stageStart).Round(time.Millisecond))})
	return Outcome{Stage: stage.Name, Status: Succeeded, Duration: time.Since(stageStart)}
}
