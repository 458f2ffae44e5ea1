// Package wait provides a bounded polling primitive for asynchronous
// external state transitions.
package wait

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Outcome is the terminal result of awaiting a condition.
type Outcome int

const (
	// Satisfied means the condition's probe reported success within bounds.
	Satisfied Outcome = iota
	// TimedOut means the probe never reported success within MaxAttempts.
	TimedOut
)

// TimeoutPolicy decides how a caller should treat an exhausted wait.
type TimeoutPolicy int

const (
	// Fatal timeouts abort the surrounding operation.
	Fatal TimeoutPolicy = iota
	// WarnAndContinue timeouts are logged and the caller proceeds.
	WarnAndContinue
)

// Condition describes one named wait: a probe evaluated every Interval,
// at most MaxAttempts times.
type Condition struct {
	// Name identifies the condition in logs and errors.
	Name string

	// Probe reports whether the awaited state has been reached.
	// A probe error is logged and counts as an unsatisfied attempt.
	Probe func(ctx context.Context) (bool, error)

	// Interval is the pause between probe evaluations.
	Interval time.Duration

	// MaxAttempts caps the number of probe evaluations.
	MaxAttempts int

	// OnTimeout tells the caller whether exhaustion is fatal.
	OnTimeout TimeoutPolicy
}

// Await polls the condition until it is satisfied, the attempts are
// exhausted, or the context is cancelled. The first probe runs immediately;
// subsequent probes are separated by Interval. Timeout is returned as an
// Outcome, not an error, so callers decide whether it is fatal.
func Await(ctx context.Context, cond Condition) (Outcome, error) {
	if cond.Probe == nil {
		return TimedOut, fmt.Errorf("wait condition %q has no probe", cond.Name)
	}
	if cond.MaxAttempts <= 0 {
		return TimedOut, fmt.Errorf("wait condition %q has no attempts", cond.Name)
	}

	for attempt := 1; attempt <= cond.MaxAttempts; attempt++ {
		ok, err := cond.Probe(ctx)
		if err != nil {
			log.Printf("[wait:%s] probe error on attempt %d/%d: %v", cond.Name, attempt, cond.MaxAttempts, err)
		} else if ok {
			return Satisfied, nil
		}

		if attempt == cond.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return TimedOut, fmt.Errorf("wait for %s cancelled: %w", cond.Name, ctx.Err())
		case <-time.After(cond.Interval):
		}
	}

	return TimedOut, nil
}
